package db

import (
	"time"

	"gorm.io/datatypes"
)

// EventType is a tenant-defined category of occurrence (e.g. "sale",
// "signup"). Slugs are URL-safe and unique per tenant.
type EventType struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	UserID uint   `gorm:"uniqueIndex:idx_event_type_slug,priority:1;not null"`
	Slug   string `gorm:"uniqueIndex:idx_event_type_slug,priority:2;size:128;not null"`

	Name  string `gorm:"size:128;not null"`
	Color int    `gorm:"not null"`
	Emoji string `gorm:"size:16"`
}

// DeliveryStatus tracks the terminal outcome of one dispatch attempt.
// Transitions PENDING -> DELIVERED or PENDING -> FAILED exactly once.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "PENDING"
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusFailed    DeliveryStatus = "FAILED"
)

// Event is an immutable record of one ingested occurrence. Name and
// fields are copied at creation; the row outlives its event type only
// until the type is deleted (deletion cascades).
type Event struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	// PublicID is the identifier returned to callers so delivery
	// outcomes can be correlated without exposing row IDs.
	PublicID string `gorm:"uniqueIndex;size:36;not null"`

	UserID      uint `gorm:"index;not null"`
	EventTypeID uint `gorm:"index;not null"`

	Name string `gorm:"size:128;not null"`

	// Fields holds the caller's flat key/value pairs. Values are
	// string, number, or boolean; nested objects are rejected at
	// ingestion time.
	Fields datatypes.JSONMap `gorm:"type:json"`

	DeliveryStatus DeliveryStatus `gorm:"size:16;index;not null;default:PENDING"`

	// Channel the dispatch was attempted on, for audit.
	Channel Channel `gorm:"size:16"`

	// FailureReason carries the adapter's message when delivery failed.
	FailureReason string `gorm:"size:512"`
}

// Quota counts accepted deliveries per tenant per billing month.
// Incremented only after a confirmed delivery; never decremented.
type Quota struct {
	ID uint `gorm:"primaryKey"`

	UserID uint `gorm:"uniqueIndex:idx_quota_period,priority:1;not null"`
	Month  int  `gorm:"uniqueIndex:idx_quota_period,priority:2;not null"`
	Year   int  `gorm:"uniqueIndex:idx_quota_period,priority:3;not null"`

	Count int64 `gorm:"not null;default:0"`
}

// DeliveryBucket stores pre-aggregated daily delivery outcomes per
// (user, channel) for audit views. Filled by the aggregation worker.
type DeliveryBucket struct {
	ID uint `gorm:"primaryKey"`

	UserID      uint      `gorm:"uniqueIndex:idx_delivery_bucket,priority:1;not null"`
	Channel     Channel   `gorm:"uniqueIndex:idx_delivery_bucket,priority:2;size:16;not null"`
	BucketStart time.Time `gorm:"uniqueIndex:idx_delivery_bucket,priority:3;not null"` // start of the day (UTC)

	DeliveredCount int64 `gorm:"not null"`
	FailedCount    int64 `gorm:"not null"`
}
