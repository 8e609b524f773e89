package handlers

import (
	"nova-rewards/middleware"
	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(r fiber.Router, svc Services, log *utils.Logger) {
	r.Get("/user/progress", func(c *fiber.Ctx) error {
		snap, err := svc.Progress.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(snap)
	})

	r.Get("/user/achievements", func(c *fiber.Ctx) error {
		snap, err := svc.Progress.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"achievements":   snap.Achievements,
			"unlocked_count": snap.UnlockedCount,
		})
	})

	r.Get("/user/coins/history", func(c *fiber.Ctx) error {
		entries, err := svc.Ledger.History(c.UserContext(), middleware.UserID(c), c.QueryInt("limit", 20))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"transactions": entries})
	})

	r.Get("/daily-reward", func(c *fiber.Ctx) error {
		ctx, userID := c.UserContext(), middleware.UserID(c)
		if _, err := svc.Progress.EnsureProgress(ctx, userID); err != nil {
			return respondError(c, log, err)
		}
		status, err := svc.Daily.Status(ctx, userID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(status)
	})

	r.Post("/daily-reward/claim", func(c *fiber.Ctx) error {
		ctx, userID := c.UserContext(), middleware.UserID(c)
		if _, err := svc.Progress.EnsureProgress(ctx, userID); err != nil {
			return respondError(c, log, err)
		}
		out, err := svc.Daily.Claim(ctx, userID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(out)
	})

	r.Post("/focus-sessions", func(c *fiber.Ctx) error {
		out, err := svc.Actions.FinishFocusSession(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"reward": out})
	})
}
