// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Portal roles.
const (
	UserStudent        = "student"
	UserTeacher        = "teacher"
	UserRepresentative = "industry"
	UserAdmin          = "admin"
)

// User is the read-only view of the identity directory that the core
// uses to enrich members and notification senders.
//
// NOTE:
//   - Profiles are owned by the user directory; this service never writes them.
//   - Email is stored folded so lookups by email match group member ids.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username   string             `bson:"username" json:"username"`
	Email      string             `bson:"email" json:"email"`
	Role       string             `bson:"role" json:"role"`
	University string             `bson:"university,omitempty" json:"university,omitempty"`
	ProfilePic string             `bson:"profile_pic,omitempty" json:"profile_pic,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Profile is the identity summary returned by directory lookups.
// Missing profiles render as nil fields rather than errors.
type Profile struct {
	Key        string  `json:"key"`
	Username   *string `json:"username"`
	Role       *string `json:"role"`
	ProfilePic *string `json:"profile_pic"`
}

// ProfileOf converts a directory user into a Profile.
func ProfileOf(key string, u User) Profile {
	p := Profile{Key: key, Username: &u.Username, Role: &u.Role}
	if u.ProfilePic != "" {
		pic := u.ProfilePic
		p.ProfilePic = &pic
	}
	return p
}
