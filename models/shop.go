package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ShopItemType indicates which profile slot an item occupies
type ShopItemType string

const (
	ShopItemAvatar ShopItemType = "AVATAR"
	ShopItemFrame  ShopItemType = "FRAME"
)

func (t ShopItemType) Valid() bool {
	return t == ShopItemAvatar || t == ShopItemFrame
}

// ShopItem is a cosmetic that can be bought with Nova Coins.
// AssetKey is what the client renders (avatar image path or frame style key).
type ShopItem struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	Type      ShopItemType `gorm:"type:varchar(16);not null;index" json:"type"`
	Name      string       `gorm:"not null" json:"name"`
	Price     int64        `gorm:"not null" json:"price"`
	AssetKey  string       `gorm:"not null" json:"asset_key"`
	IsDefault bool         `gorm:"not null;default:false" json:"is_default"`
	Timestamps
}

// UserInventory records ownership. One row per (user, item).
type UserInventory struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"not null;uniqueIndex:ux_user_item,priority:1" json:"user_id"`
	ItemID      string    `gorm:"not null;uniqueIndex:ux_user_item,priority:2" json:"item_id"`
	PurchasedAt time.Time `gorm:"not null" json:"purchased_at"`
}

func (i *UserInventory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

type catalogEntry struct {
	key   string
	name  string
	price int64
	asset string
	def   bool
}

var avatarEntries = []catalogEntry{
	{key: "default", name: "Novice Dreamer", price: 0, asset: "/assets/images/avatars/default.png", def: true},
	{key: "coder", name: "Cyber Architect", price: 500, asset: "/assets/images/avatars/coder.png"},
	{key: "zen", name: "Mindful Spirit", price: 1000, asset: "/assets/images/avatars/zen.png"},
	{key: "artist", name: "Abstract Creative", price: 2500, asset: "/assets/images/avatars/artist.png"},
	{key: "founder", name: "The Visionary", price: 5000, asset: "/assets/images/avatars/founder.png"},
}

var frameEntries = []catalogEntry{
	{key: "minimal", name: "Clean Slate", price: 200, asset: "minimal"},
	{key: "orbit", name: "Solar Orbit", price: 600, asset: "orbit"},
	{key: "neon", name: "Cyber Pulse", price: 800, asset: "neon"},
	{key: "brutalist", name: "Bold Shift", price: 900, asset: "brutalist"},
	{key: "blob", name: "Liquid Spirit", price: 1200, asset: "blob"},
	{key: "gradient", name: "Aurora Borealis", price: 1500, asset: "gradient"},
	{key: "tech", name: "System Core", price: 1800, asset: "tech"},
	{key: "eclipse", name: "Lunar Eclipse", price: 2200, asset: "eclipse"},
	{key: "glass", name: "Crystal Prism", price: 3000, asset: "glass"},
	{key: "golden", name: "Midas Touch", price: 10000, asset: "gold"},
}

// ShopItemID builds the stable catalog id, e.g. ("AVATAR", "coder") -> "avatar-coder".
func ShopItemID(t ShopItemType, key string) string {
	return slug.Make(string(t) + " " + key)
}

// ShopCatalog returns the built-in items in display order (avatars first, then frames).
func ShopCatalog() []ShopItem {
	items := make([]ShopItem, 0, len(avatarEntries)+len(frameEntries))
	add := func(t ShopItemType, entries []catalogEntry) {
		for _, e := range entries {
			items = append(items, ShopItem{
				ID:        ShopItemID(t, e.key),
				Type:      t,
				Name:      e.name,
				Price:     e.price,
				AssetKey:  e.asset,
				IsDefault: e.def,
			})
		}
	}
	add(ShopItemAvatar, avatarEntries)
	add(ShopItemFrame, frameEntries)
	return items
}
