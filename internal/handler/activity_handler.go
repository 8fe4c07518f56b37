package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/service"
)

// ActivityHandler exposes the daily activity and weekly workout document
type ActivityHandler struct {
	aggregator *service.MetricsAggregator
	clock      domain.Clock
}

func NewActivityHandler(aggregator *service.MetricsAggregator, clock domain.Clock) *ActivityHandler {
	return &ActivityHandler{aggregator: aggregator, clock: clock}
}

type recordMetricRequest struct {
	Field string   `json:"field"`
	Value *float64 `json:"value"`
}

type updateGoalRequest struct {
	Name string   `json:"name"`
	Goal *float64 `json:"goal"`
}

// RecordMetric handles POST /v1/me/activity/metrics
func (h *ActivityHandler) RecordMetric(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	var req recordMetricRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid body")
	}
	if req.Value == nil {
		return badRequest(c, "value is required")
	}
	field, err := domain.ParseMetricField(req.Field)
	if err != nil {
		return respondError(c, err)
	}

	activity, err := h.aggregator.RecordDailyMetric(c.UserContext(), userID, field, *req.Value)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, activity)
}

// UpdateGoal handles PUT /v1/me/activity/goals
func (h *ActivityHandler) UpdateGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	var req updateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid body")
	}
	if req.Goal == nil {
		return badRequest(c, "goal is required")
	}

	activity, err := h.aggregator.UpdateGoal(c.UserContext(), userID, req.Name, *req.Goal)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, activity)
}

// EnsureWeek handles POST /v1/me/activity/week/ensure
func (h *ActivityHandler) EnsureWeek(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	today := h.clock.Now()
	reset, err := h.aggregator.EnsureCurrentWeek(c.UserContext(), userID, today)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, fiber.Map{
		"week":  service.WeekIdentifier(today),
		"reset": reset,
	})
}

// RecordWorkout handles POST /v1/me/activity/workouts
func (h *ActivityHandler) RecordWorkout(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	var req domain.WorkoutCompletion
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid body")
	}

	activity, err := h.aggregator.RecordWorkoutCompletion(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, activity)
}

// Today handles GET /v1/me/activity/today
func (h *ActivityHandler) Today(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	activity, err := h.aggregator.Today(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, activity)
}
