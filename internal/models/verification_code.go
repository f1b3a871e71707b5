package models

// VerificationCode stores the bcrypt hash of a one-time numeric email
// verification code. At most one live code exists per user; issuing a new
// one supersedes any prior row. Codes carry no expiry: they are single-use
// and superseded on reissue, which bounds the risk window.
type VerificationCode struct {
	BaseModel

	UserID   string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CodeHash string `gorm:"not null" json:"-"`
}
