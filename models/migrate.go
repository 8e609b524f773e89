package models

import "gorm.io/gorm"

// AutoMigrate creates/updates every table the rewards engine owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserProgress{},
		&CurrencyTransaction{},
		&UnlockedAchievement{},
		&DailyRewardClaim{},
		&ActivityEvent{},
		&RecurringTemplate{},
		&TaskInstance{},
		&Goal{},
		&GoalMilestone{},
		&ShopItem{},
		&UserInventory{},
	)
}
