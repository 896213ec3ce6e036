package db

import (
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// runAggregationOnce rolls the given day's events (bucketStart to
// bucketStart+24h, UTC) into DeliveryBucket rows per (user, channel).
func runAggregationOnce(db *gorm.DB, bucketStart time.Time) error {
	bucketEnd := bucketStart.Add(24 * time.Hour)

	var events []Event
	if err := db.Where("created_at >= ? AND created_at < ?", bucketStart, bucketEnd).
		Select("user_id", "channel", "delivery_status").
		Find(&events).Error; err != nil {
		return err
	}

	type key struct {
		UserID  uint
		Channel Channel
	}
	type tally struct {
		delivered int64
		failed    int64
	}
	groups := make(map[key]*tally)
	for _, e := range events {
		k := key{UserID: e.UserID, Channel: e.Channel}
		t := groups[k]
		if t == nil {
			t = &tally{}
			groups[k] = t
		}
		switch e.DeliveryStatus {
		case StatusDelivered:
			t.delivered++
		case StatusFailed:
			t.failed++
		}
	}

	for k, t := range groups {
		row := DeliveryBucket{
			UserID:         k.UserID,
			Channel:        k.Channel,
			BucketStart:    bucketStart,
			DeliveredCount: t.delivered,
			FailedCount:    t.failed,
		}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "channel"}, {Name: "bucket_start"}},
			DoUpdates: clause.Assignments(map[string]any{
				"delivered_count": row.DeliveredCount,
				"failed_count":    row.FailedCount,
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// StartAggregationWorker launches a background goroutine that
// aggregates the previous day once at startup and then the just-closed
// day shortly after each UTC midnight.
func StartAggregationWorker(db *gorm.DB) {
	go func() {
		run := func() {
			day := time.Now().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour)
			if err := runAggregationOnce(db, day); err != nil {
				log.Printf("delivery aggregation error: %v", err)
			}
		}
		run()

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			run()
		}
	}()
}
