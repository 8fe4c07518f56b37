package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/service"
	"github.com/mansoorceksport/liftlog/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// WorkoutHandler drives live workout sessions
type WorkoutHandler struct {
	workoutService *service.WorkoutService
}

func NewWorkoutHandler(workoutService *service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// sessionID reads the :id param and tags the request span with it
func sessionID(c *fiber.Ctx) string {
	id := c.Params("id")
	telemetry.SpanFromContext(c).SetAttributes(attribute.String("liftlog.session_id", id))
	return id
}

type recordSetRequest struct {
	ExerciseIndex *int     `json:"exercise_index"`
	SetIndex      *int     `json:"set_index"`
	Reps          int      `json:"reps"`
	Weight        *float64 `json:"weight"`
}

type adjustRestRequest struct {
	DeltaSeconds int `json:"delta_seconds"`
}

// StartSession handles POST /v1/me/sessions
func (h *WorkoutHandler) StartSession(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	var day domain.WorkoutDay
	if err := c.BodyParser(&day); err != nil {
		return badRequest(c, "Invalid body")
	}

	snap, err := h.workoutService.Start(c.UserContext(), userID, day)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusCreated, snap)
}

// GetSession handles GET /v1/me/sessions/:id
func (h *WorkoutHandler) GetSession(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	snap, err := h.workoutService.Get(c.UserContext(), userID, sessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, snap)
}

// RecordSet handles POST /v1/me/sessions/:id/sets
func (h *WorkoutHandler) RecordSet(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	var req recordSetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid body")
	}
	if req.ExerciseIndex == nil || req.SetIndex == nil || req.Weight == nil {
		return badRequest(c, "exercise_index, set_index and weight are required")
	}

	result, err := h.workoutService.RecordSet(c.UserContext(), userID, sessionID(c),
		*req.ExerciseIndex, *req.SetIndex, req.Reps, *req.Weight)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, result)
}

// ConfirmExercise handles POST /v1/me/sessions/:id/confirm
func (h *WorkoutHandler) ConfirmExercise(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	snap, err := h.workoutService.ConfirmExercise(c.UserContext(), userID, sessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, snap)
}

// SkipExercise handles POST /v1/me/sessions/:id/skip
func (h *WorkoutHandler) SkipExercise(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	snap, err := h.workoutService.SkipExercise(c.UserContext(), userID, sessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, snap)
}

// FinishSession handles POST /v1/me/sessions/:id/finish
func (h *WorkoutHandler) FinishSession(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	record, err := h.workoutService.Finish(c.UserContext(), userID, sessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, record)
}

// AbandonSession handles DELETE /v1/me/sessions/:id
func (h *WorkoutHandler) AbandonSession(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	if err := h.workoutService.Abandon(c.UserContext(), userID, sessionID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ControlRest handles POST /v1/me/sessions/:id/timer/:action
func (h *WorkoutHandler) ControlRest(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	action := service.TimerAction(c.Params("action"))
	timer, err := h.workoutService.ControlRest(c.UserContext(), userID, sessionID(c), action)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, timer)
}

// AdjustRest handles POST /v1/me/sessions/:id/timer/adjust
func (h *WorkoutHandler) AdjustRest(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	var req adjustRestRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid body")
	}

	timer, err := h.workoutService.AdjustRest(c.UserContext(), userID, sessionID(c), req.DeltaSeconds)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, timer)
}
