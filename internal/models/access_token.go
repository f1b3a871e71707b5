package models

import "time"

// AccessToken stores the digest of an opaque bearer token. The raw secret is
// never persisted; clients hold the only copy.
//
// The integer primary key doubles as the eviction tie-breaker: when two tokens
// share a creation timestamp the lower sequence id is the older one.
type AccessToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
