package recorder

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	TripID      string   `json:"trip_id"`
	ResumeTiles []string `json:"resume_tiles"`
}

type fixRequest struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	TimestampMs    int64   `json:"timestamp_ms"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

func RegisterRoutes(r fiber.Router, mgr *Manager, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.TripID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "trip_id required")
		}

		sess := mgr.Start(userID(c), req.TripID, req.ResumeTiles)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"state":   sess.State(),
			"trip_id": sess.TripID(),
		})
	})

	r.Post("/fix", authMiddleware, func(c *fiber.Ctx) error {
		var req fixRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sess := mgr.Get(userID(c))
		if sess == nil {
			return fiber.NewError(fiber.StatusNotFound, "no active session")
		}

		fix := Fix{
			Latitude:       req.Latitude,
			Longitude:      req.Longitude,
			AccuracyMeters: req.AccuracyMeters,
		}
		if req.TimestampMs > 0 {
			fix.Timestamp = time.UnixMilli(req.TimestampMs)
		}
		sess.HandleFix(c.Context(), fix)
		return c.JSON(fiber.Map{"state": sess.State(), "buffered": sess.Buffered()})
	})

	r.Post("/pause", authMiddleware, func(c *fiber.Ctx) error {
		sess := mgr.Get(userID(c))
		if sess == nil {
			return fiber.NewError(fiber.StatusNotFound, "no active session")
		}
		sess.Pause(c.Context())
		return c.JSON(fiber.Map{"state": sess.State()})
	})

	r.Post("/resume", authMiddleware, func(c *fiber.Ctx) error {
		sess := mgr.Get(userID(c))
		if sess == nil {
			return fiber.NewError(fiber.StatusNotFound, "no active session")
		}
		sess.Resume()
		return c.JSON(fiber.Map{"state": sess.State()})
	})

	r.Post("/end", authMiddleware, func(c *fiber.Ctx) error {
		sess := mgr.Get(userID(c))
		if sess == nil {
			return fiber.NewError(fiber.StatusNotFound, "no active session")
		}
		mgr.End(userID(c))
		return c.JSON(fiber.Map{"state": sess.State()})
	})

	r.Post("/visibility", authMiddleware, func(c *fiber.Ctx) error {
		sess := mgr.Get(userID(c))
		if sess == nil {
			return fiber.NewError(fiber.StatusNotFound, "no active session")
		}
		sess.VisibilityHidden(c.Context())
		return c.JSON(fiber.Map{"state": sess.State()})
	})

	r.Get("/state", authMiddleware, func(c *fiber.Ctx) error {
		sess := mgr.Get(userID(c))
		if sess == nil {
			return c.JSON(fiber.Map{"state": StateStopped})
		}
		return c.JSON(fiber.Map{
			"state":    sess.State(),
			"trip_id":  sess.TripID(),
			"buffered": sess.Buffered(),
		})
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
