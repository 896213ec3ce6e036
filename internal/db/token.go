package db

import "time"

// TokenTTL is how long a verification code stays redeemable.
const TokenTTL = 10 * time.Minute

// VerificationToken is a single-use code proving a tenant controls a
// destination identifier. Deleted on redemption; expired rows are
// swept by the cleanup worker.
type VerificationToken struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	UserID  uint    `gorm:"index;not null"`
	Channel Channel `gorm:"size:16;not null"`

	Code string `gorm:"index;size:16;not null"`

	// Identifier the code was issued for. Redemption must present
	// the same identifier.
	Identifier string `gorm:"size:255;not null"`

	ExpiresAt time.Time `gorm:"index;not null"`
}

// Expired reports whether the token is past its expiry at the given time.
func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
