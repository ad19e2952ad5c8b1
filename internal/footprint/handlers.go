package footprint

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type createRequest struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	RecordedAt *time.Time `json:"recorded_at"`
}

type bulkRequest struct {
	Footprints []BulkItem `json:"footprints"`
}

// RegisterRoutes mounts the footprint endpoints on the trips group.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:id/footprints", authMiddleware, func(c *fiber.Ctx) error {
		var req createRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Latitude == nil || req.Longitude == nil || req.RecordedAt == nil {
			return fiber.NewError(fiber.StatusBadRequest, "latitude, longitude and recorded_at required")
		}

		fp, err := svc.Create(c.Context(), userID(c), c.Params("id"), *req.Latitude, *req.Longitude, *req.RecordedAt)
		if errors.Is(err, ErrTripNotOwned) {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fp)
	})

	r.Post("/:id/footprints/bulk", authMiddleware, func(c *fiber.Ctx) error {
		var req bulkRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		count, err := svc.BulkCreate(c.Context(), userID(c), c.Params("id"), req.Footprints)
		if errors.Is(err, ErrTripNotOwned) {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"count": count})
	})

	r.Get("/:id/footprints", authMiddleware, func(c *fiber.Ctx) error {
		fps, err := svc.ListByTrip(c.Context(), userID(c), c.Params("id"))
		if errors.Is(err, ErrTripNotOwned) {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if fps == nil {
			fps = []Footprint{}
		}
		return c.JSON(fiber.Map{"footprints": fps})
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
