package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps the GORM connection behind the narrow query surface the
// dispatcher, quota ledger, verifier, and handlers consume. Each of
// those packages declares the interface it needs; Store satisfies all
// of them.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- tenants ---

// UsersWithCredentials returns every tenant that has an API key hash
// on file. The credential resolver scans these rows.
func (s *Store) UsersWithCredentials() ([]User, error) {
	var users []User
	if err := s.db.Where("api_key_hash <> ''").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UserByID(id uint) (*User, error) {
	var u User
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) SaveUser(u *User) error {
	return s.db.Save(u).Error
}

// --- event types ---

func (s *Store) TypeBySlug(userID uint, slug string) (*EventType, error) {
	var t EventType
	if err := s.db.Where("user_id = ? AND slug = ?", userID, slug).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) ListTypes(userID uint) ([]EventType, error) {
	var types []EventType
	if err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (s *Store) CreateType(t *EventType) error {
	return s.db.Create(t).Error
}

func (s *Store) CreateTypes(types []EventType) error {
	return s.db.Create(&types).Error
}

// DeleteType removes an event type and all of its events.
func (s *Store) DeleteType(userID uint, slug string) error {
	t, err := s.TypeBySlug(userID, slug)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_type_id = ?", t.ID).Delete(&Event{}).Error; err != nil {
			return err
		}
		return tx.Delete(t).Error
	})
}

// --- events ---

func (s *Store) CreateEvent(e *Event) error {
	return s.db.Create(e).Error
}

func (s *Store) EventByPublicID(userID uint, publicID string) (*Event, error) {
	var e Event
	if err := s.db.Where("user_id = ? AND public_id = ?", userID, publicID).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// SetEventStatus moves an event out of PENDING exactly once. A second
// call for the same event is a no-op returning ErrNotFound, so a
// terminal status never reverts.
func (s *Store) SetEventStatus(eventID uint, status DeliveryStatus, reason string) error {
	res := s.db.Model(&Event{}).
		Where("id = ? AND delivery_status = ?", eventID, StatusPending).
		Updates(map[string]any{"delivery_status": status, "failure_reason": reason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- quota ---

// QuotaCount returns the tenant's accepted-delivery count for the
// billing period containing now. A missing row counts as zero.
func (s *Store) QuotaCount(userID uint, now time.Time) (int64, error) {
	var q Quota
	err := s.db.Where("user_id = ? AND month = ? AND year = ?",
		userID, int(now.Month()), now.Year()).First(&q).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return q.Count, nil
}

// IncrementQuota bumps the tenant's counter for the current period by
// one, creating the row at 1 if absent. The upsert is atomic so
// concurrent deliveries never lose increments.
func (s *Store) IncrementQuota(userID uint, now time.Time) error {
	q := Quota{
		UserID: userID,
		Month:  int(now.Month()),
		Year:   now.Year(),
		Count:  1,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count": gorm.Expr("count + 1"),
		}),
	}).Create(&q).Error
}

// --- verification tokens ---

func (s *Store) CreateToken(t *VerificationToken) error {
	return s.db.Create(t).Error
}

func (s *Store) TokenByCode(ch Channel, code string) (*VerificationToken, error) {
	var t VerificationToken
	if err := s.db.Where("channel = ? AND code = ?", ch, code).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) DeleteToken(id uint) error {
	return s.db.Delete(&VerificationToken{}, id).Error
}

// VerifiedIdentifierInUse reports whether another tenant already holds
// this identifier verified for the channel. Prevents notification
// hijacking: one verified destination belongs to one tenant.
func (s *Store) VerifiedIdentifierInUse(ch Channel, identifier string, excludeUserID uint) (bool, error) {
	column, ok := channelColumns[ch]
	if !ok {
		return false, errors.New("unknown channel")
	}
	var count int64
	err := s.db.Model(&User{}).
		Where(column.id+" = ? AND "+column.verified+" IS NOT NULL AND id <> ?", identifier, excludeUserID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var channelColumns = map[Channel]struct{ id, verified string }{
	ChannelDiscord:  {"discord_id", "discord_verified_at"},
	ChannelSlack:    {"slack_id", "slack_verified_at"},
	ChannelWebex:    {"webex_id", "webex_verified_at"},
	ChannelEmail:    {"email_id", "email_verified_at"},
	ChannelWhatsApp: {"whats_app_id", "whats_app_verified_at"},
	ChannelTeams:    {"teams_id", "teams_verified_at"},
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
