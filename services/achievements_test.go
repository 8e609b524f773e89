package services

import (
	"testing"

	"nova-rewards/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordEvents(t *testing.T, env *testEnv, userID string, kind models.ActivityKind, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, env.db.Create(&models.ActivityEvent{UserID: userID, Kind: kind, CreatedAt: env.now}).Error)
	}
}

func TestTryUnlockIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", nil)

	first, err := env.ach.TryUnlock(testContext(t), nil, "u1", models.AchievementFirstTodo)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "The Beginning", first.Definition.Title)
	assert.Equal(t, int64(50), first.XP.XPGained)

	again, err := env.ach.TryUnlock(testContext(t), nil, "u1", models.AchievementFirstTodo)
	require.NoError(t, err)
	assert.Nil(t, again)

	prog := env.reload(t, "u1")
	assert.Equal(t, int64(50), prog.Experience)
	assert.Equal(t, int64(10), prog.Coins)

	var unlocks int64
	require.NoError(t, env.db.Model(&models.UnlockedAchievement{}).Where("user_id = ?", "u1").Count(&unlocks).Error)
	assert.Equal(t, int64(1), unlocks)

	entries := env.ledgerEntries(t, "u1")
	require.Len(t, entries, 1)
	assert.Equal(t, "Achievement: The Beginning", entries[0].Description)
}

func TestTryUnlockUnknownID(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", nil)

	_, err := env.ach.TryUnlock(testContext(t), nil, "u1", "NOPE")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTryUnlockRollsBackWithoutProgress(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ach.TryUnlock(testContext(t), nil, "ghost", models.AchievementFirstGoal)
	require.ErrorIs(t, err, ErrNotFound)

	var unlocks int64
	require.NoError(t, env.db.Model(&models.UnlockedAchievement{}).Count(&unlocks).Error)
	assert.Zero(t, unlocks, "unlock record must roll back with its rewards")
}

func TestCheckTaskAchievementsThresholds(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", nil)

	got, err := env.ach.CheckTaskAchievements(testContext(t), nil, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)

	recordEvents(t, env, "u1", models.ActivityTaskCompleted, 10)
	got, err = env.ach.CheckTaskAchievements(testContext(t), nil, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.AchievementFirstTodo, got[0].Definition.ID)
	assert.Equal(t, models.AchievementTodo10, got[1].Definition.ID)

	got, err = env.ach.CheckTaskAchievements(testContext(t), nil, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCheckFocusAchievements(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", nil)

	recordEvents(t, env, "u1", models.ActivityFocusSessionFinished, 25)
	got, err := env.ach.CheckFocusAchievements(testContext(t), nil, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.AchievementPomodoro25, got[1].Definition.ID)
}

func TestCheckGoalAchievementsModesAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", nil)

	recordEvents(t, env, "u1", models.ActivityGoalCreated, 1)
	got, err := env.ach.CheckGoalAchievements(testContext(t), nil, "u1", GoalModeComplete)
	require.NoError(t, err)
	assert.Empty(t, got, "creating a goal must not unlock the completion badge")

	got, err = env.ach.CheckGoalAchievements(testContext(t), nil, "u1", GoalModeCreate)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.AchievementFirstGoal, got[0].Definition.ID)

	_, err = env.ach.CheckGoalAchievements(testContext(t), nil, "u1", GoalMode("ARCHIVE"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAchievementCatalog(t *testing.T) {
	all := models.AllAchievements()
	require.Len(t, all, 7)
	for _, def := range all {
		assert.GreaterOrEqual(t, def.XPReward, int64(0))
		assert.GreaterOrEqual(t, def.CoinReward, int64(0))
		got, ok := models.LookupAchievement(def.ID)
		assert.True(t, ok)
		assert.Equal(t, def, got)
	}
}
