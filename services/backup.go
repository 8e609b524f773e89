package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nova-rewards/models"
	"nova-rewards/utils"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const snapshotVersion = 1

// ObjectStore persists backup blobs (R2 in production).
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

type SnapshotMeta struct {
	Version    int       `json:"version" validate:"eq=1"`
	ExportedAt time.Time `json:"exported_at"`
	UserID     string    `json:"user_id"`
}

type ProgressSnapshot struct {
	Level         int        `json:"level" validate:"min=1,max=100"`
	Experience    int64      `json:"experience" validate:"min=0"`
	Coins         int64      `json:"coins" validate:"min=0"`
	StreakCount   int        `json:"streak_count" validate:"min=0,max=30"`
	LastClaimedAt *time.Time `json:"last_claimed_at,omitempty"`
	ActiveAvatar  string     `json:"active_avatar"`
	ActiveFrame   string     `json:"active_frame"`
}

type SnapshotData struct {
	Progress     ProgressSnapshot             `json:"user"`
	Inventory    []models.UserInventory       `json:"inventory"`
	Achievements []models.UnlockedAchievement `json:"achievements"`
	Templates    []models.RecurringTemplate   `json:"templates"`
	Tasks        []models.TaskInstance        `json:"tasks"`
	Goals        []models.Goal                `json:"goals"`
	Milestones   []models.GoalMilestone       `json:"milestones"`
	Events       []models.ActivityEvent       `json:"events"`
	CoinHistory  []models.CurrencyTransaction `json:"coin_history"`
	DailyClaims  []models.DailyRewardClaim    `json:"daily_claims"`
}

// Snapshot is the portable backup of one user's gamification state.
type Snapshot struct {
	Meta SnapshotMeta `json:"meta"`
	Data SnapshotData `json:"data"`
}

type BackupService struct {
	DB    *gorm.DB
	Store ObjectStore // nil disables uploads
	Clock Clock
	log   *utils.Logger
}

func NewBackupService(db *gorm.DB, store ObjectStore, clock Clock, log *utils.Logger) *BackupService {
	return &BackupService{
		DB:    db,
		Store: store,
		Clock: clock,
		log:   log.With("service", "BackupService"),
	}
}

// Export reads everything the user owns into a Snapshot.
func (s *BackupService) Export(ctx context.Context, userID string) (*Snapshot, error) {
	db := s.DB.WithContext(ctx)
	prog, err := loadProgress(db, userID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Meta: SnapshotMeta{Version: snapshotVersion, ExportedAt: s.Clock(), UserID: userID},
		Data: SnapshotData{
			Progress: ProgressSnapshot{
				Level:         prog.Level,
				Experience:    prog.Experience,
				Coins:         prog.Coins,
				StreakCount:   prog.StreakCount,
				LastClaimedAt: prog.LastClaimedAt,
				ActiveAvatar:  prog.ActiveAvatar,
				ActiveFrame:   prog.ActiveFrame,
			},
		},
	}

	d := &snap.Data
	for _, q := range []struct {
		dest  interface{}
		order string
	}{
		{&d.Inventory, "purchased_at"},
		{&d.Achievements, "unlocked_at"},
		{&d.Templates, "created_at"},
		{&d.Tasks, "position"},
		{&d.Goals, "created_at"},
		{&d.Milestones, "created_at"},
		{&d.Events, "created_at"},
		{&d.CoinHistory, "created_at"},
		{&d.DailyClaims, "claimed_at"},
	} {
		if err := db.Where("user_id = ?", userID).Order(q.order).Find(q.dest).Error; err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	return snap, nil
}

// backupKeyPrefix scopes every object of a user under one folder.
func backupKeyPrefix(userID string) string {
	return "backups/" + slug.Make(userID) + "/"
}

// ExportToStore exports and uploads the snapshot, returning the object key.
func (s *BackupService) ExportToStore(ctx context.Context, userID string) (string, error) {
	if s.Store == nil {
		return "", fmt.Errorf("%w: backup storage is not configured", ErrValidation)
	}
	snap, err := s.Export(ctx, userID)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	key := backupKeyPrefix(userID) + snap.Meta.ExportedAt.UTC().Format("20060102-150405") + ".json"
	if _, err := s.Store.Put(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	s.log.Info("📦 backup uploaded", "user_id", userID, "key", key)
	return key, nil
}

// RestoreFromStore loads a snapshot previously uploaded for the same user.
func (s *BackupService) RestoreFromStore(ctx context.Context, userID, key string) error {
	if s.Store == nil {
		return fmt.Errorf("%w: backup storage is not configured", ErrValidation)
	}
	if !strings.HasPrefix(key, backupKeyPrefix(userID)) {
		return fmt.Errorf("backup %s: %w", key, ErrNotFound)
	}
	raw, err := s.Store.Get(ctx, key)
	if err != nil {
		return err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("%w: malformed backup: %v", ErrValidation, err)
	}
	return s.Restore(ctx, userID, &snap)
}

// ValidateSnapshot rejects snapshots that would break progress invariants.
func ValidateSnapshot(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: empty backup", ErrValidation)
	}
	if err := validateInput(snap.Meta); err != nil {
		return err
	}
	p := snap.Data.Progress
	if err := validateInput(p); err != nil {
		return err
	}
	if p.Experience >= XPThreshold(p.Level) {
		return fmt.Errorf("%w: experience %d exceeds level %d threshold", ErrValidation, p.Experience, p.Level)
	}
	for _, a := range snap.Data.Achievements {
		if _, ok := models.LookupAchievement(a.AchievementID); !ok {
			return fmt.Errorf("%w: unknown achievement %q", ErrValidation, a.AchievementID)
		}
	}
	for _, t := range snap.Data.Templates {
		if !t.Period.Valid() {
			return fmt.Errorf("%w: template %q has unknown period %q", ErrValidation, t.Title, t.Period)
		}
	}
	for _, e := range snap.Data.Events {
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: unknown activity kind %q", ErrValidation, e.Kind)
		}
	}
	return nil
}

// Restore wipes the user's rewards state and rewrites it from snap, all in
// one transaction. Rows get fresh ids; template, task, goal and milestone references are remapped.
func (s *BackupService) Restore(ctx context.Context, userID string, snap *Snapshot) error {
	if err := ValidateSnapshot(snap); err != nil {
		return err
	}
	d := snap.Data

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.CurrencyTransaction{},
			&models.UnlockedAchievement{},
			&models.DailyRewardClaim{},
			&models.ActivityEvent{},
			&models.TaskInstance{},
			&models.RecurringTemplate{},
			&models.GoalMilestone{},
			&models.Goal{},
			&models.UserInventory{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return fmt.Errorf("wipe: %w", err)
			}
		}

		prog, err := ensureProgress(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(prog).Updates(map[string]interface{}{
			"level":           d.Progress.Level,
			"experience":      d.Progress.Experience,
			"coins":           d.Progress.Coins,
			"streak_count":    d.Progress.StreakCount,
			"last_claimed_at": d.Progress.LastClaimedAt,
			"active_avatar":   d.Progress.ActiveAvatar,
			"active_frame":    d.Progress.ActiveFrame,
		}).Error; err != nil {
			return err
		}

		ids := map[string]string{}
		for i := range d.Templates {
			t := d.Templates[i]
			old := t.ID
			t.ID, t.UserID = "", userID
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
			ids[old] = t.ID
		}
		for i := range d.Tasks {
			t := d.Tasks[i]
			old := t.ID
			t.ID, t.UserID = "", userID
			if t.SourceTemplateID != nil {
				if mapped, ok := ids[*t.SourceTemplateID]; ok {
					t.SourceTemplateID = &mapped
				} else {
					t.SourceTemplateID = nil
				}
			}
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
			ids[old] = t.ID
		}
		for i := range d.Goals {
			g := d.Goals[i]
			old := g.ID
			g.ID, g.UserID = "", userID
			if err := tx.Create(&g).Error; err != nil {
				return err
			}
			ids[old] = g.ID
		}
		for i := range d.Milestones {
			m := d.Milestones[i]
			goalID, ok := ids[m.GoalID]
			if !ok {
				continue // orphaned by a goal missing from the backup
			}
			m.ID, m.UserID, m.GoalID = "", userID, goalID
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}

		// copy so the caller's snapshot keeps its original ids
		d.Events = append([]models.ActivityEvent(nil), d.Events...)
		d.Inventory = append([]models.UserInventory(nil), d.Inventory...)
		d.Achievements = append([]models.UnlockedAchievement(nil), d.Achievements...)
		d.CoinHistory = append([]models.CurrencyTransaction(nil), d.CoinHistory...)
		d.DailyClaims = append([]models.DailyRewardClaim(nil), d.DailyClaims...)

		for i := range d.Events {
			e := &d.Events[i]
			e.ID, e.UserID = "", userID
			if mapped, ok := ids[e.SourceID]; ok {
				e.SourceID = mapped
			}
		}
		for i := range d.Inventory {
			d.Inventory[i].ID, d.Inventory[i].UserID = "", userID
		}
		for i := range d.Achievements {
			d.Achievements[i].ID, d.Achievements[i].UserID = "", userID
		}
		for i := range d.CoinHistory {
			d.CoinHistory[i].ID, d.CoinHistory[i].UserID = "", userID
		}
		for i := range d.DailyClaims {
			d.DailyClaims[i].ID, d.DailyClaims[i].UserID = "", userID
		}

		if err := createAll(tx, d.Events); err != nil {
			return err
		}
		if err := createAll(tx, d.Inventory); err != nil {
			return err
		}
		if err := createAll(tx, d.Achievements); err != nil {
			return err
		}
		if err := createAll(tx, d.CoinHistory); err != nil {
			return err
		}
		return createAll(tx, d.DailyClaims)
	})
	if err != nil {
		return err
	}

	s.log.Info("♻️ backup restored", "user_id", userID, "tasks", len(d.Tasks), "ledger_entries", len(d.CoinHistory))
	return nil
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(&rows, 200).Error
}
