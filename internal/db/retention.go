package db

import (
	"log"
	"time"

	"gorm.io/gorm"
)

// runTokenCleanupOnce performs a single pass over verification tokens,
// deleting any whose expiry is in the past. Redeemed tokens are deleted
// inline; this sweep catches codes that were never used.
func runTokenCleanupOnce(db *gorm.DB) error {
	now := time.Now()
	return db.Where("expires_at <= ?", now).Delete(&VerificationToken{}).Error
}

// StartTokenCleanupWorker launches a background goroutine that sweeps
// expired verification tokens once at startup and then hourly.
func StartTokenCleanupWorker(db *gorm.DB) {
	go func() {
		if err := runTokenCleanupOnce(db); err != nil {
			log.Printf("token cleanup error (startup): %v", err)
		}

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := runTokenCleanupOnce(db); err != nil {
				log.Printf("token cleanup error: %v", err)
			}
		}
	}()
}
