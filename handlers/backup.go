package handlers

import (
	"nova-rewards/middleware"
	"nova-rewards/services"
	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
)

type restoreRequest struct {
	Key string `json:"key"`
}

func SetupBackupRoutes(r fiber.Router, svc Services, log *utils.Logger) {
	// download
	r.Get("/backup", func(c *fiber.Ctx) error {
		snap, err := svc.Backup.Export(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		c.Attachment("nova-backup.json")
		return c.JSON(snap)
	})

	// upload to object storage
	r.Post("/backup", func(c *fiber.Ctx) error {
		key, err := svc.Backup.ExportToStore(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
	})

	r.Post("/backup/import", func(c *fiber.Ctx) error {
		var snap services.Snapshot
		if err := parseBody(c, &snap); err != nil {
			return respondError(c, log, err)
		}
		if err := svc.Backup.Restore(c.UserContext(), middleware.UserID(c), &snap); err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	r.Post("/backup/restore", func(c *fiber.Ctx) error {
		var req restoreRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, log, err)
		}
		if req.Key == "" {
			return respondError(c, log, badRequest("key is required"))
		}
		if err := svc.Backup.RestoreFromStore(c.UserContext(), middleware.UserID(c), req.Key); err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})
}
