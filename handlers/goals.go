package handlers

import (
	"strings"

	"nova-rewards/middleware"
	"nova-rewards/models"
	"nova-rewards/services"
	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
)

type goalRequest struct {
	Title string `json:"title"`
}

func SetupGoalRoutes(r fiber.Router, svc Services, log *utils.Logger) {
	r.Get("/goals", func(c *fiber.Ctx) error {
		status := models.GoalStatus(strings.ToUpper(c.Query("status")))
		if status != "" && status != models.GoalStatusActive && status != models.GoalStatusCompleted {
			return respondError(c, log, badRequest("status must be ACTIVE or COMPLETED"))
		}
		goals, err := svc.Goals.List(c.UserContext(), middleware.UserID(c), status)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"goals": goals})
	})

	r.Post("/goals", func(c *fiber.Ctx) error {
		var req goalRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, log, err)
		}
		goal, out, err := svc.Actions.CreateGoal(c.UserContext(), middleware.UserID(c), req.Title)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"goal": goal, "reward": out})
	})

	r.Post("/goals/:id/complete", func(c *fiber.Ctx) error {
		goal, out, err := svc.Actions.CompleteGoal(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"goal": goal, "reward": out})
	})

	r.Delete("/goals/:id", func(c *fiber.Ctx) error {
		if err := svc.Goals.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/goals/:id/milestones", func(c *fiber.Ctx) error {
		milestones, err := svc.Goals.ListMilestones(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"milestones": milestones})
	})

	r.Post("/goals/:id/milestones", func(c *fiber.Ctx) error {
		var req goalRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, log, err)
		}
		m, err := svc.Goals.AddMilestone(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Title)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	r.Patch("/milestones/:id", func(c *fiber.Ctx) error {
		var patch services.MilestonePatch
		if err := parseBody(c, &patch); err != nil {
			return respondError(c, log, err)
		}
		m, err := svc.Goals.UpdateMilestone(c.UserContext(), middleware.UserID(c), c.Params("id"), patch)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(m)
	})

	r.Delete("/milestones/:id", func(c *fiber.Ctx) error {
		if err := svc.Goals.DeleteMilestone(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
