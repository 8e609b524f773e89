package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nova-rewards/models"
	"nova-rewards/services"
	"nova-rewards/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	now := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	log := utils.NopLogger()

	ledger := services.NewLedgerService(db, clock, log, nil)
	xp := services.NewExperienceService(db, ledger, clock, log, nil)
	ach := services.NewAchievementService(db, xp, ledger, clock, log, nil)
	sched := services.NewSchedulerService(db, clock, log, nil)
	shop := services.NewShopService(db, ledger, clock, log, nil)
	_, err = shop.Seed(testContext(t))
	require.NoError(t, err)

	app := fiber.New()
	SetupRoutes(app, Services{
		Progress: services.NewProgressService(db, ach, log),
		Daily:    services.NewDailyRewardService(db, ledger, nil, clock, log, nil),
		Actions:  services.NewActionService(db, xp, ledger, ach, nil, clock, log),
		Ledger:   ledger,
		Tasks:    services.NewTaskService(db, sched, clock, log),
		Goals:    services.NewGoalService(db, clock),
		Shop:     shop,
		Backup:   services.NewBackupService(db, nil, clock, log),
	}, log)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, userID, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestMissingUserIsRejected(t *testing.T) {
	app := newTestApp(t)
	status, _ := call(t, app, http.MethodGet, "/user/progress", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTaskCompletionFlow(t *testing.T) {
	app := newTestApp(t)

	status, task := call(t, app, http.MethodPost, "/tasks", "u1", `{"title":"Write tests"}`)
	require.Equal(t, http.StatusCreated, status)
	id, _ := task["id"].(string)
	require.NotEmpty(t, id)

	status, body := call(t, app, http.MethodPost, "/tasks/"+id+"/complete", "u1", "")
	require.Equal(t, http.StatusOK, status)
	reward := body["reward"].(map[string]interface{})
	assert.Equal(t, float64(70), reward["xp_gained"])
	assert.Equal(t, float64(15), reward["coins_earned"])

	status, prog := call(t, app, http.MethodGet, "/user/progress", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(70), prog["experience"])
	assert.Equal(t, float64(15), prog["coins"])
	assert.Equal(t, float64(1), prog["unlocked_count"])

	// someone else's task
	status, body = call(t, app, http.MethodPost, "/tasks/"+id+"/complete", "u2", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["code"])
}

func TestValidationErrors(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodPost, "/tasks", "u1", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", body["code"])

	status, _ = call(t, app, http.MethodPost, "/templates", "u1", `{"title":"x","period":"HOURLY"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodPost, "/tasks", "u1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", body["code"])

	status, _ = call(t, app, http.MethodGet, "/goals?status=paused", "u1", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGoalCompletionNeedsMilestones(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodPost, "/goals", "u1", `{"title":"Climb Kilimanjaro"}`)
	require.Equal(t, http.StatusCreated, status)
	goalID, _ := body["goal"].(map[string]interface{})["id"].(string)
	require.NotEmpty(t, goalID)

	status, body = call(t, app, http.MethodPost, "/goals/"+goalID+"/complete", "u1", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", body["code"])

	status, m := call(t, app, http.MethodPost, "/goals/"+goalID+"/milestones", "u1", `{"title":"Train"}`)
	require.Equal(t, http.StatusCreated, status)
	milestoneID, _ := m["id"].(string)
	require.NotEmpty(t, milestoneID)

	status, _ = call(t, app, http.MethodPost, "/goals/"+goalID+"/complete", "u1", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPatch, "/milestones/"+milestoneID, "u2", `{"is_completed":true}`)
	assert.Equal(t, http.StatusNotFound, status)
	status, m = call(t, app, http.MethodPatch, "/milestones/"+milestoneID, "u1", `{"is_completed":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, m["is_completed"])

	status, body = call(t, app, http.MethodGet, "/goals/"+goalID+"/milestones", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["milestones"], 1)

	status, body = call(t, app, http.MethodPost, "/goals/"+goalID+"/complete", "u1", "")
	require.Equal(t, http.StatusOK, status)
	goal := body["goal"].(map[string]interface{})
	assert.Equal(t, "COMPLETED", goal["status"])
	assert.Equal(t, float64(100), goal["progress"])

	status, _ = call(t, app, http.MethodDelete, "/milestones/"+milestoneID, "u1", "")
	assert.Equal(t, http.StatusNoContent, status)
}

func TestShopInsufficientFunds(t *testing.T) {
	app := newTestApp(t)

	item := models.ShopItemID(models.ShopItemFrame, "orbit")
	status, body := call(t, app, http.MethodPost, "/shop/"+item+"/buy", "u1", "")
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient_funds", body["code"])

	status, body = call(t, app, http.MethodGet, "/shop", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["user_balance"])
	assert.Len(t, body["items"], 15)
}

func TestDailyRewardClaimTwice(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/daily-reward", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["can_claim"])

	status, body = call(t, app, http.MethodPost, "/daily-reward/claim", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(10), body["total_coins"])

	status, body = call(t, app, http.MethodPost, "/daily-reward/claim", "u1", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "already_claimed", body["code"])
}

func TestClearCompletedRouteIsNotAnID(t *testing.T) {
	app := newTestApp(t)
	status, body := call(t, app, http.MethodDelete, "/tasks/completed", "u1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["deleted"])
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInsufficientFunds, fiber.StatusPaymentRequired, "insufficient_funds"},
		{fmt.Errorf("task x: %w", services.ErrNotFound), fiber.StatusNotFound, "not_found"},
		{services.ErrAlreadyOwned, fiber.StatusBadRequest, "already_owned"},
		{fmt.Errorf("%w: bad", services.ErrValidation), fiber.StatusBadRequest, "validation_failed"},
		{badRequest("nope"), fiber.StatusBadRequest, "bad_request"},
		{fmt.Errorf("disk on fire"), fiber.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		api := classify(tc.err)
		assert.Equal(t, tc.status, api.Status, tc.err.Error())
		assert.Equal(t, tc.code, api.Code, tc.err.Error())
	}
}
