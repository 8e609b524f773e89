package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"nova-rewards/models"
	"nova-rewards/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires every service against a private in-memory database and a
// clock the test can move.
type testEnv struct {
	db  *gorm.DB
	now time.Time

	ledger   *LedgerService
	xp       *ExperienceService
	ach      *AchievementService
	daily    *DailyRewardService
	sched    *SchedulerService
	actions  *ActionService
	tasks    *TaskService
	goals    *GoalService
	shop     *ShopService
	progress *ProgressService
	backup   *BackupService
	notifier *recordingNotifier
}

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:nova-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:       newTestDB(t),
		now:      time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC),
		notifier: &recordingNotifier{},
	}
	clock := func() time.Time { return env.now }
	log := utils.NopLogger()

	env.ledger = NewLedgerService(env.db, clock, log, nil)
	env.xp = NewExperienceService(env.db, env.ledger, clock, log, nil)
	env.ach = NewAchievementService(env.db, env.xp, env.ledger, clock, log, nil)
	env.daily = NewDailyRewardService(env.db, env.ledger, env.notifier, clock, log, nil)
	env.sched = NewSchedulerService(env.db, clock, log, nil)
	env.actions = NewActionService(env.db, env.xp, env.ledger, env.ach, env.notifier, clock, log)
	env.tasks = NewTaskService(env.db, env.sched, clock, log)
	env.goals = NewGoalService(env.db, clock)
	env.shop = NewShopService(env.db, env.ledger, clock, log, nil)
	env.progress = NewProgressService(env.db, env.ach, log)
	env.backup = NewBackupService(env.db, nil, clock, log)
	return env
}

// seedUser creates a progress row, optionally customised.
func (e *testEnv) seedUser(t *testing.T, userID string, mutate func(p *models.UserProgress)) *models.UserProgress {
	t.Helper()
	p := &models.UserProgress{UserID: userID, Level: 1}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) reload(t *testing.T, userID string) models.UserProgress {
	t.Helper()
	var p models.UserProgress
	require.NoError(t, e.db.Where("user_id = ?", userID).First(&p).Error)
	return p
}

func (e *testEnv) ledgerEntries(t *testing.T, userID string) []models.CurrencyTransaction {
	t.Helper()
	var rows []models.CurrencyTransaction
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (e *testEnv) seedTask(t *testing.T, userID, title string) *models.TaskInstance {
	t.Helper()
	task, err := e.tasks.CreateTask(testContext(t), userID, TaskInput{Title: title})
	require.NoError(t, err)
	return task
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, event string, _ interface{}) error {
	n.events = append(n.events, userID+":"+event)
	return nil
}
