package handlers

import (
	"nova-rewards/middleware"
	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupShopRoutes(r fiber.Router, svc Services, log *utils.Logger) {
	r.Get("/shop", func(c *fiber.Ctx) error {
		listing, err := svc.Shop.ListItems(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(listing)
	})

	r.Post("/shop/:id/buy", func(c *fiber.Ctx) error {
		balance, err := svc.Shop.Buy(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"success": true, "new_balance": balance})
	})

	r.Post("/shop/:id/equip", func(c *fiber.Ctx) error {
		res, err := svc.Shop.Equip(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(res)
	})
}
