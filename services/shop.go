package services

import (
	"context"
	"errors"
	"fmt"

	"nova-rewards/models"
	"nova-rewards/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShopService struct {
	DB      *gorm.DB
	Ledger  *LedgerService
	Clock   Clock
	log     *utils.Logger
	metrics *utils.Metrics
}

func NewShopService(db *gorm.DB, ledger *LedgerService, clock Clock, log *utils.Logger, metrics *utils.Metrics) *ShopService {
	return &ShopService{
		DB:      db,
		Ledger:  ledger,
		Clock:   clock,
		log:     log.With("service", "ShopService"),
		metrics: metrics,
	}
}

// Seed upserts the built-in catalog. Safe to run on every deploy.
func (s *ShopService) Seed(ctx context.Context) (int, error) {
	items := models.ShopCatalog()
	for _, it := range items {
		if err := validateCatalogItem(it); err != nil {
			return 0, fmt.Errorf("seed shop: %w", err)
		}
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "name", "price", "asset_key", "is_default", "updated_at"}),
	}).Create(&items).Error
	if err != nil {
		return 0, fmt.Errorf("seed shop: %w", err)
	}
	s.log.Info("🛒 shop catalog seeded", "items", len(items))
	return len(items), nil
}

func validateCatalogItem(it models.ShopItem) error {
	switch {
	case !it.Type.Valid():
		return fmt.Errorf("%w: item %s has unknown type %q", ErrValidation, it.ID, it.Type)
	case it.ID == "" || it.Name == "" || it.AssetKey == "":
		return fmt.Errorf("%w: item %q is missing id, name or asset", ErrValidation, it.ID)
	case it.Price < 0:
		return fmt.Errorf("%w: item %s has negative price", ErrValidation, it.ID)
	}
	return nil
}

type ShopItemStatus struct {
	models.ShopItem
	IsOwned    bool `json:"is_owned"`
	IsEquipped bool `json:"is_equipped"`
}

type ShopListing struct {
	Balance int64            `json:"user_balance"`
	Items   []ShopItemStatus `json:"items"`
}

// ListItems returns the catalog, cheapest first, with ownership flags. Default items count as owned.
func (s *ShopService) ListItems(ctx context.Context, userID string) (ShopListing, error) {
	db := s.DB.WithContext(ctx)
	prog, err := ensureProgress(db, userID)
	if err != nil {
		return ShopListing{}, err
	}

	var items []models.ShopItem
	if err := db.Order("price ASC").Order("id ASC").Find(&items).Error; err != nil {
		return ShopListing{}, err
	}
	var owned []string
	if err := db.Model(&models.UserInventory{}).
		Where("user_id = ?", userID).
		Pluck("item_id", &owned).Error; err != nil {
		return ShopListing{}, err
	}
	ownedSet := make(map[string]bool, len(owned))
	for _, id := range owned {
		ownedSet[id] = true
	}

	listing := ShopListing{Balance: prog.Coins, Items: make([]ShopItemStatus, 0, len(items))}
	for _, it := range items {
		equipped := (it.Type == models.ShopItemAvatar && prog.ActiveAvatar == it.AssetKey) ||
			(it.Type == models.ShopItemFrame && prog.ActiveFrame == it.AssetKey)
		listing.Items = append(listing.Items, ShopItemStatus{
			ShopItem:   it,
			IsOwned:    it.IsDefault || ownedSet[it.ID],
			IsEquipped: equipped,
		})
	}
	return listing, nil
}

func (s *ShopService) findItem(tx *gorm.DB, itemID string) (*models.ShopItem, error) {
	var item models.ShopItem
	if err := tx.Where("id = ?", itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shop item %s: %w", itemID, ErrNotFound)
		}
		return nil, err
	}
	return &item, nil
}

// Buy debits the price and adds the item to the inventory in one transaction.
// Returns the new balance.
func (s *ShopService) Buy(ctx context.Context, userID, itemID string) (int64, error) {
	var balance int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog, err := ensureProgress(tx, userID)
		if err != nil {
			return err
		}
		item, err := s.findItem(tx, itemID)
		if err != nil {
			return err
		}
		if item.IsDefault {
			return ErrAlreadyOwned
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserInventory{
			UserID:      userID,
			ItemID:      item.ID,
			PurchasedAt: s.Clock(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyOwned
		}

		balance = prog.Coins
		if item.Price > 0 {
			balance, err = s.Ledger.ModifyBalance(ctx, tx, userID, -item.Price, "Bought item: "+item.Name)
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.ShopPurchase(itemID)
	s.log.Info("🛍️ item purchased", "user_id", userID, "item", itemID)
	return balance, nil
}

type EquipResult struct {
	Type  models.ShopItemType `json:"type"`
	Asset string              `json:"asset"`
}

// Equip puts an owned (or default) item into its profile slot.
func (s *ShopService) Equip(ctx context.Context, userID, itemID string) (EquipResult, error) {
	db := s.DB.WithContext(ctx)
	if _, err := ensureProgress(db, userID); err != nil {
		return EquipResult{}, err
	}
	item, err := s.findItem(db, itemID)
	if err != nil {
		return EquipResult{}, err
	}

	if !item.IsDefault {
		var count int64
		if err := db.Model(&models.UserInventory{}).
			Where("user_id = ? AND item_id = ?", userID, item.ID).
			Count(&count).Error; err != nil {
			return EquipResult{}, err
		}
		if count == 0 {
			return EquipResult{}, ErrNotOwned
		}
	}

	column := "active_frame"
	if item.Type == models.ShopItemAvatar {
		column = "active_avatar"
	}
	if err := db.Model(&models.UserProgress{}).
		Where("user_id = ?", userID).
		Update(column, item.AssetKey).Error; err != nil {
		return EquipResult{}, err
	}
	return EquipResult{Type: item.Type, Asset: item.AssetKey}, nil
}
