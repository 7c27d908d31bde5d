package models

import "time"

// WaitlistTableName is shared by the gorm model, the SQL migrations and the hosted REST store.
const WaitlistTableName = "waitlist"

// WaitlistEntry is the single persisted record per normalized email address.
type WaitlistEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id,omitempty"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	Frustration  *string   `gorm:"column:frustration" json:"frustration"`
	Dream        *string   `gorm:"column:dream" json:"dream"`
	PriceRange   *string   `gorm:"column:priceRange" json:"priceRange"`
	PaymentStyle *string   `gorm:"column:paymentStyle" json:"paymentStyle"`
	HeardFrom    *string   `gorm:"column:heardFrom" json:"heardFrom"`
	BotField     string    `gorm:"column:botField;not null;default:''" json:"botField"`
	Source       string    `gorm:"not null" json:"source"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (WaitlistEntry) TableName() string {
	return WaitlistTableName
}

// UpsertColumns are overwritten when a submission hits an existing email.
// created_at is absent so the first-seen time survives.
var UpsertColumns = []string{
	"name",
	"frustration",
	"dream",
	"priceRange",
	"paymentStyle",
	"heardFrom",
	"botField",
	"source",
	"updated_at",
}

var ModelRegistry = []interface{}{
	&WaitlistEntry{},
}
