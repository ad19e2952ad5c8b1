package trip

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type visibilityRequest struct {
	Status string `json:"status"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		trip, err := svc.Create(c.Context(), userID(c))
		var open *OpenTripError
		if errors.As(err, &open) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":        "open trip exists",
				"open_trip_id": open.TripID,
			})
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(trip)
	})

	r.Post("/:id/finish", authMiddleware, func(c *fiber.Ctx) error {
		trip, err := svc.Finish(c.Context(), c.Params("id"), userID(c))
		if err != nil {
			return tripError(err)
		}
		return c.JSON(trip)
	})

	r.Post("/:id/finish_and_start", authMiddleware, func(c *fiber.Ctx) error {
		finished, started, err := svc.FinishAndStart(c.Context(), c.Params("id"), userID(c))
		if err != nil {
			return tripError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"finished": finished,
			"started":  started,
		})
	})

	r.Get("/:id/resume", authMiddleware, func(c *fiber.Ctx) error {
		res, err := svc.Resume(c.Context(), c.Params("id"), userID(c))
		if err != nil {
			return tripError(err)
		}
		return c.JSON(res)
	})

	r.Patch("/:id/visibility", authMiddleware, func(c *fiber.Ctx) error {
		var req visibilityRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !ValidStatus(req.Status) {
			return fiber.NewError(fiber.StatusBadRequest, "status must be private, unlisted or public")
		}
		trip, err := svc.UpdateVisibility(c.Context(), c.Params("id"), userID(c), req.Status)
		if err != nil {
			return tripError(err)
		}
		return c.JSON(trip)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		trip, err := svc.Get(c.Context(), c.Params("id"), userID(c))
		if err != nil {
			return tripError(err)
		}
		return c.JSON(trip)
	})
}

func tripError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "trip not found")
	case errors.Is(err, ErrEmptyTrip):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "trip has no footprints")
	default:
		var open *OpenTripError
		if errors.As(err, &open) {
			return fiber.NewError(fiber.StatusConflict, open.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
