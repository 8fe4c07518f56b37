package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/service"
)

const maxFrequencyWindowDays = 90

// ProgressHandler serves read-only analytics over finished sessions
type ProgressHandler struct {
	progressService *service.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// GetHistory handles GET /v1/me/progress/history
func (h *ProgressHandler) GetHistory(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	history, err := h.progressService.History(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, history)
}

// GetPersonalRecords handles GET /v1/me/progress/records
func (h *ProgressHandler) GetPersonalRecords(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	records, err := h.progressService.PersonalRecords(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, records)
}

// GetFrequency handles GET /v1/me/progress/frequency?days=7
func (h *ProgressHandler) GetFrequency(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	// Parse days query parameter (default: one week)
	days, err := strconv.Atoi(c.Query("days", strconv.Itoa(service.DefaultFrequencyWindowDays)))
	if err != nil || days <= 0 {
		days = service.DefaultFrequencyWindowDays
	}
	if days > maxFrequencyWindowDays {
		days = maxFrequencyWindowDays
	}

	buckets, err := h.progressService.Frequency(c.UserContext(), userID, days)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, buckets)
}

// GetOverview handles GET /v1/me/progress/overview
func (h *ProgressHandler) GetOverview(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return unauthenticated(c)
	}

	overview, err := h.progressService.Overview(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, overview)
}
