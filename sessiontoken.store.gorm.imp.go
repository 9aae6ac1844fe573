// File: sessiontoken.store.gorm.imp.go

package sessiontoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionRecord represents a session in the database
type sessionRecord struct {
	SessionID string    `gorm:"primaryKey;type:varchar(36)"`
	LoginID   string    `gorm:"type:varchar(255);not null"`
	Role      string    `gorm:"type:varchar(64);not null"`
	UserID    int64     `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index:idx_sessions_expires_at;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for sessionRecord
func (sessionRecord) TableName() string {
	return "auth_sessions"
}

// challengeRecord represents a dormant-reactivation challenge in the database
type challengeRecord struct {
	ChallengeKey string    `gorm:"primaryKey;type:varchar(64)"`
	LoginID      string    `gorm:"type:varchar(255)"`
	Code         string    `gorm:"type:varchar(8);not null"`
	ExpiresAt    time.Time `gorm:"index:idx_challenges_expires_at;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for challengeRecord
func (challengeRecord) TableName() string {
	return "auth_challenges"
}

// GormStore is a SQL-backed implementation of Store. Relational databases
// have no native TTL, so expiry is an expires_at column enforced on every
// read; PurgeExpired reclaims dead rows.
type GormStore struct {
	db         *gorm.DB
	sessionTTL time.Duration
}

// NewGormStore creates a SQL-backed store and migrates its tables. A
// non-positive sessionTTL falls back to the 7-day default.
func NewGormStore(db *gorm.DB, sessionTTL time.Duration) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	if err := db.AutoMigrate(&sessionRecord{}, &challengeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return &GormStore{db: db, sessionTTL: sessionTTL}, nil
}

func (g *GormStore) Put(ctx context.Context, sessionID string, attrs SessionAttributes) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	record := sessionRecord{
		SessionID: sessionID,
		LoginID:   attrs.LoginID,
		Role:      attrs.Role,
		UserID:    attrs.UserID,
		ExpiresAt: time.Now().Add(g.sessionTTL),
		CreatedAt: time.Now(),
	}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		return wrapStoreErr("write session", err)
	}
	return nil
}

func (g *GormStore) Get(ctx context.Context, sessionID string) (SessionAttributes, error) {
	var record sessionRecord
	err := g.db.WithContext(ctx).
		Where("session_id = ? AND expires_at > ?", sessionID, time.Now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionAttributes{}, nil
	}
	if err != nil {
		return SessionAttributes{}, wrapStoreErr("read session", err)
	}
	return SessionAttributes{LoginID: record.LoginID, Role: record.Role, UserID: record.UserID}, nil
}

// Take locks the row for the duration of the transaction so that concurrent
// rotations serialize on the database instead of racing.
func (g *GormStore) Take(ctx context.Context, sessionID string) (SessionAttributes, error) {
	var attrs SessionAttributes
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record sessionRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionID).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return wrapStoreErr("read session", err)
		}
		if time.Now().After(record.ExpiresAt) {
			return nil
		}
		if err := tx.Delete(&sessionRecord{SessionID: sessionID}).Error; err != nil {
			return wrapStoreErr("delete session", err)
		}
		attrs = SessionAttributes{LoginID: record.LoginID, Role: record.Role, UserID: record.UserID}
		return nil
	})
	if err != nil {
		return SessionAttributes{}, err
	}
	return attrs, nil
}

func (g *GormStore) Remove(ctx context.Context, sessionID string) error {
	err := g.db.WithContext(ctx).Delete(&sessionRecord{SessionID: sessionID}).Error
	if err != nil {
		return wrapStoreErr("delete session", err)
	}
	return nil
}

func (g *GormStore) PutChallenge(ctx context.Context, key, loginID, code string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("challenge key cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	record := challengeRecord{
		ChallengeKey: key,
		LoginID:      loginID,
		Code:         code,
		ExpiresAt:    time.Now().Add(ttl),
		CreatedAt:    time.Now(),
	}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		return wrapStoreErr("write challenge", err)
	}
	return nil
}

func (g *GormStore) ChallengeExists(ctx context.Context, key string) (bool, error) {
	var record challengeRecord
	err := g.db.WithContext(ctx).
		Where("challenge_key = ? AND expires_at > ?", key, time.Now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapStoreErr("read challenge", err)
	}
	return record.Code != "" && record.LoginID != "", nil
}

func (g *GormStore) ConsumeChallenge(ctx context.Context, key, code string) (string, error) {
	var loginID string
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record challengeRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("challenge_key = ?", key).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActivationFailed
		}
		if err != nil {
			return wrapStoreErr("read challenge", err)
		}
		if time.Now().After(record.ExpiresAt) || record.Code != code {
			return ErrActivationFailed
		}
		if record.LoginID == "" {
			return ErrChallengeConsumed
		}
		if err := tx.Delete(&challengeRecord{ChallengeKey: key}).Error; err != nil {
			return wrapStoreErr("delete challenge", err)
		}
		loginID = record.LoginID
		return nil
	})
	if err != nil {
		return "", err
	}
	return loginID, nil
}

// PurgeExpired removes rows whose expires_at has passed. Intended to be run
// periodically by the embedding process.
func (g *GormStore) PurgeExpired(ctx context.Context) error {
	now := time.Now()
	if err := g.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&sessionRecord{}).Error; err != nil {
		return wrapStoreErr("purge sessions", err)
	}
	if err := g.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&challengeRecord{}).Error; err != nil {
		return wrapStoreErr("purge challenges", err)
	}
	return nil
}
