package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"nova-rewards/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = append([]byte(nil), body...)
	return "mem://" + key, nil
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	body, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, ErrNotFound)
	}
	return body, nil
}

// buildHistory gives u1 a bit of everything.
func buildHistory(t *testing.T, env *testEnv) (tpl *models.RecurringTemplate) {
	t.Helper()
	ctx := testContext(t)

	task := env.seedTask(t, "u1", "Inbox zero")
	_, _, err := env.actions.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)

	tpl, _, err = env.tasks.CreateTemplate(ctx, "u1", TemplateInput{Title: "Journal", Period: "DAILY"})
	require.NoError(t, err)

	goal, _, err := env.actions.CreateGoal(ctx, "u1", "Ship v1")
	require.NoError(t, err)
	_, err = env.goals.AddMilestone(ctx, "u1", goal.ID, "Write docs")
	require.NoError(t, err)

	_, err = env.daily.Claim(ctx, "u1")
	require.NoError(t, err)
	return tpl
}

func TestExportSnapshot(t *testing.T) {
	env := newTestEnv(t)
	buildHistory(t, env)

	snap, err := env.backup.Export(testContext(t), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Meta.Version)
	assert.Equal(t, "u1", snap.Meta.UserID)

	prog := env.reload(t, "u1")
	assert.Equal(t, prog.Coins, snap.Data.Progress.Coins)
	assert.Equal(t, prog.Experience, snap.Data.Progress.Experience)
	assert.Equal(t, 1, snap.Data.Progress.StreakCount)
	assert.Len(t, snap.Data.Tasks, 2)
	assert.Len(t, snap.Data.Templates, 1)
	assert.Len(t, snap.Data.Goals, 1)
	require.Len(t, snap.Data.Milestones, 1)
	assert.Equal(t, snap.Data.Goals[0].ID, snap.Data.Milestones[0].GoalID)
	assert.Len(t, snap.Data.Achievements, 2)
	assert.Len(t, snap.Data.DailyClaims, 1)
	assert.Len(t, snap.Data.Events, 2)
	assert.NotEmpty(t, snap.Data.CoinHistory)

	_, err = env.backup.Export(testContext(t), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestoreRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	store := &memoryStore{}
	env.backup.Store = store
	tpl := buildHistory(t, env)
	before := env.reload(t, "u1")

	key, err := env.backup.ExportToStore(testContext(t), "u1")
	require.NoError(t, err)
	assert.Equal(t, "backups/u1/20261017-090000.json", key)

	// diverge after the backup
	env.now = env.now.Add(time.Hour)
	_, err = env.actions.FinishFocusSession(testContext(t), "u1")
	require.NoError(t, err)
	require.NoError(t, env.tasks.DeleteTemplate(testContext(t), "u1", tpl.ID))

	require.NoError(t, env.backup.RestoreFromStore(testContext(t), "u1", key))

	after := env.reload(t, "u1")
	assert.Equal(t, before.Level, after.Level)
	assert.Equal(t, before.Experience, after.Experience)
	assert.Equal(t, before.Coins, after.Coins)
	assert.Equal(t, before.StreakCount, after.StreakCount)

	templates, err := env.tasks.ListTemplates(testContext(t), "u1")
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.NotEqual(t, tpl.ID, templates[0].ID)

	var linked int64
	require.NoError(t, env.db.Model(&models.TaskInstance{}).
		Where("source_template_id = ?", templates[0].ID).
		Count(&linked).Error)
	assert.Equal(t, int64(1), linked)

	unlocked, err := env.ach.Unlocked(testContext(t), "u1")
	require.NoError(t, err)
	assert.NotContains(t, unlocked, models.AchievementFirstPomodoro)
	assert.Contains(t, unlocked, models.AchievementFirstTodo)

	goals, err := env.goals.List(testContext(t), "u1", "")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	milestones, err := env.goals.ListMilestones(testContext(t), "u1", goals[0].ID)
	require.NoError(t, err)
	require.Len(t, milestones, 1)
	assert.Equal(t, "Write docs", milestones[0].Title)

	// today's claim came back with the backup
	_, err = env.daily.Claim(testContext(t), "u1")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestRestoreFromStoreRejectsForeignKey(t *testing.T) {
	env := newTestEnv(t)
	env.backup.Store = &memoryStore{}
	buildHistory(t, env)

	key, err := env.backup.ExportToStore(testContext(t), "u1")
	require.NoError(t, err)
	err = env.backup.RestoreFromStore(testContext(t), "u2", key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackupWithoutStore(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", nil)
	_, err := env.backup.ExportToStore(testContext(t), "u1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateSnapshot(t *testing.T) {
	valid := func() *Snapshot {
		return &Snapshot{
			Meta: SnapshotMeta{Version: 1, UserID: "u1"},
			Data: SnapshotData{Progress: ProgressSnapshot{Level: 2, Experience: 10}},
		}
	}
	require.NoError(t, ValidateSnapshot(valid()))

	cases := map[string]func(s *Snapshot){
		"wrong version":       func(s *Snapshot) { s.Meta.Version = 2 },
		"level zero":          func(s *Snapshot) { s.Data.Progress.Level = 0 },
		"negative coins":      func(s *Snapshot) { s.Data.Progress.Coins = -1 },
		"xp over threshold":   func(s *Snapshot) { s.Data.Progress.Experience = XPThreshold(2) },
		"streak past the cap": func(s *Snapshot) { s.Data.Progress.StreakCount = 31 },
		"unknown achievement": func(s *Snapshot) {
			s.Data.Achievements = []models.UnlockedAchievement{{AchievementID: "NOPE"}}
		},
		"unknown period": func(s *Snapshot) {
			s.Data.Templates = []models.RecurringTemplate{{Title: "x", Period: "HOURLY"}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid()
			mutate(s)
			assert.ErrorIs(t, ValidateSnapshot(s), ErrValidation)
		})
	}
	assert.ErrorIs(t, ValidateSnapshot(nil), ErrValidation)
}

func TestRestoreMalformedBlob(t *testing.T) {
	env := newTestEnv(t)
	store := &memoryStore{}
	env.backup.Store = store
	env.seedUser(t, "u1", nil)

	_, err := store.Put(testContext(t), "backups/u1/bad.json", []byte("{not json"), "application/json")
	require.NoError(t, err)
	assert.ErrorIs(t, env.backup.RestoreFromStore(testContext(t), "u1", "backups/u1/bad.json"), ErrValidation)

	bad, err := json.Marshal(Snapshot{Meta: SnapshotMeta{Version: 9}})
	require.NoError(t, err)
	_, err = store.Put(testContext(t), "backups/u1/v9.json", bad, "application/json")
	require.NoError(t, err)
	assert.ErrorIs(t, env.backup.RestoreFromStore(testContext(t), "u1", "backups/u1/v9.json"), ErrValidation)
}
