package mymap

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/my_map", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		geohashes, err := svc.VisitedTiles(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if geohashes == nil {
			geohashes = []string{}
		}
		return c.JSON(fiber.Map{"geohashes": geohashes})
	})
}
