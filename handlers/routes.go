package handlers

import (
	"nova-rewards/middleware"
	"nova-rewards/services"
	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Progress *services.ProgressService
	Daily    *services.DailyRewardService
	Actions  *services.ActionService
	Ledger   *services.LedgerService
	Tasks    *services.TaskService
	Goals    *services.GoalService
	Shop     *services.ShopService
	Backup   *services.BackupService
}

// SetupRoutes mounts every user-scoped route. The gateway forwards
// /api/v1/rewards/s/<path> to /<path> with X-User-ID set.
func SetupRoutes(app *fiber.App, svc Services, log *utils.Logger) {
	secured := app.Group("/", middleware.UserContextMiddleware(log))

	SetupRewardRoutes(secured, svc, log)
	SetupTaskRoutes(secured, svc, log)
	SetupGoalRoutes(secured, svc, log)
	SetupShopRoutes(secured, svc, log)
	SetupBackupRoutes(secured, svc, log)
}
