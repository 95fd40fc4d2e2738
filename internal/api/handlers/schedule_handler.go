package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postqueue/internal/service"
	"github.com/maheshrc27/postqueue/internal/transfer"
)

type ScheduleHandler struct {
	s service.ScheduleService
}

func NewScheduleHandler(service service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

// PreviewSchedule computes posting times for a batch of posts. Pure: nothing
// is stored, the caller schedules each post separately afterwards.
func (h *ScheduleHandler) PreviewSchedule(c *fiber.Ctx) error {
	var sr transfer.ScheduleRequest
	if err := c.BodyParser(&sr); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	times := h.s.ComputeSchedule(sr.NumPosts, sr.Days, time.Now())

	scheduleTimes := make([]string, 0, len(times))
	for _, t := range times {
		scheduleTimes = append(scheduleTimes, t.Format(time.RFC3339))
	}

	return c.Status(fiber.StatusOK).JSON(transfer.ScheduleResponse{
		ScheduleTimes: scheduleTimes,
	})
}
