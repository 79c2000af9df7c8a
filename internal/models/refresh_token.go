package models

import (
	"time"

	"gorm.io/gorm"
)

// RefreshToken is one issued refresh credential. Tokens are rotated on every
// refresh and revoked in bulk on logout, so validity is decided by this row,
// not by the JWT signature alone.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// FindActiveRefreshToken loads the stored row for a presented refresh token:
// it must belong to userID, be unrevoked, and not yet expired.
func FindActiveRefreshToken(db *gorm.DB, token, userID string) (*RefreshToken, error) {
	var stored RefreshToken
	err := db.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
		token, userID, false, time.Now()).First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// RevokeRefreshTokens revokes every active refresh token of a user.
func RevokeRefreshTokens(db *gorm.DB, userID string) error {
	return db.Model(&RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error
}
