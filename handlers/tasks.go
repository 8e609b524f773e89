package handlers

import (
	"nova-rewards/middleware"
	"nova-rewards/services"
	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
)

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func SetupTaskRoutes(r fiber.Router, svc Services, log *utils.Logger) {
	r.Get("/tasks", func(c *fiber.Ctx) error {
		tasks, err := svc.Tasks.ListActive(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"tasks": tasks})
	})

	r.Post("/tasks", func(c *fiber.Ctx) error {
		var in services.TaskInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, log, err)
		}
		task, err := svc.Tasks.CreateTask(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	// registered before /tasks/:id so "completed" is not taken for an id
	r.Delete("/tasks/completed", func(c *fiber.Ctx) error {
		n, err := svc.Tasks.ClearCompleted(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"deleted": n})
	})

	r.Post("/tasks/reorder", func(c *fiber.Ctx) error {
		var req reorderRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, log, err)
		}
		if err := svc.Tasks.Reorder(c.UserContext(), middleware.UserID(c), req.IDs); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Patch("/tasks/:id", func(c *fiber.Ctx) error {
		var patch services.TaskPatch
		if err := parseBody(c, &patch); err != nil {
			return respondError(c, log, err)
		}
		task, err := svc.Tasks.UpdateTask(c.UserContext(), middleware.UserID(c), c.Params("id"), patch)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(task)
	})

	r.Delete("/tasks/:id", func(c *fiber.Ctx) error {
		if err := svc.Tasks.DeleteTask(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/tasks/:id/complete", func(c *fiber.Ctx) error {
		task, out, err := svc.Actions.CompleteTask(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"task": task, "reward": out})
	})

	r.Post("/tasks/:id/uncomplete", func(c *fiber.Ctx) error {
		task, err := svc.Tasks.UncompleteTask(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(task)
	})

	// --- recurring templates ---

	r.Get("/templates", func(c *fiber.Ctx) error {
		templates, err := svc.Tasks.ListTemplates(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"templates": templates})
	})

	r.Post("/templates", func(c *fiber.Ctx) error {
		var in services.TemplateInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, log, err)
		}
		tpl, first, err := svc.Tasks.CreateTemplate(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"template": tpl, "task": first})
	})

	r.Patch("/templates/:id", func(c *fiber.Ctx) error {
		var patch services.TemplatePatch
		if err := parseBody(c, &patch); err != nil {
			return respondError(c, log, err)
		}
		tpl, err := svc.Tasks.UpdateTemplate(c.UserContext(), middleware.UserID(c), c.Params("id"), patch)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(tpl)
	})

	r.Delete("/templates/:id", func(c *fiber.Ctx) error {
		if err := svc.Tasks.DeleteTemplate(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
