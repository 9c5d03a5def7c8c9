package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered account. ResetToken and ResetTokenExpiry are
// either both set (a reset is pending) or both absent.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Email            string             `bson:"email"`
	PasswordHash     string             `bson:"password"`
	ResetToken       string             `bson:"reset_token,omitempty"`
	ResetTokenExpiry *time.Time         `bson:"reset_token_expiry,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

// HasPendingReset reports whether a reset token is stored on the record.
func (u *User) HasPendingReset() bool {
	return u.ResetToken != "" && u.ResetTokenExpiry != nil
}

// ResetExpired reports whether the stored reset expiry is absent or not after now.
func (u *User) ResetExpired(now time.Time) bool {
	return u.ResetTokenExpiry == nil || !now.Before(*u.ResetTokenExpiry)
}
