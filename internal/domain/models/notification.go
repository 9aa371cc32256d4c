// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType names the domain event that produced a notification.
type NotificationType string

const (
	NotifyProjectApproval     NotificationType = "projectApproval"
	NotifySupervisionRequest  NotificationType = "supervisionRequest"
	NotifySupervisionResponse NotificationType = "supervisionResponse"
	NotifyGroupCreated        NotificationType = "groupCreated"
	NotifyGroupJoin           NotificationType = "groupJoin"
	NotifyRoleCompletion      NotificationType = "roleCompletion"
	NotifyReview              NotificationType = "review"
	NotifySubmission          NotificationType = "submission"
	NotifyEditRequest         NotificationType = "editRequest"
	NotifyEditDecision        NotificationType = "editDecision"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// RelatedEntity points at the record a notification is about.
type RelatedEntity struct {
	Type        string `bson:"type" json:"type"`
	ID          string `bson:"id" json:"id"`
	SecondaryID string `bson:"secondary_id,omitempty" json:"secondary_id,omitempty"`
}

// Recipient carries one recipient's read/response state.
type Recipient struct {
	UserID      string     `bson:"user_id" json:"user_id"`
	Read        bool       `bson:"read" json:"read"`
	ReadAt      *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`
	Responded   bool       `bson:"responded" json:"responded"`
	Response    string     `bson:"response,omitempty" json:"response,omitempty"`
	RespondedAt *time.Time `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
}

// Sender is the enriched identity of whoever triggered the event.
// Profile fields are nil when the directory has no profile.
type Sender struct {
	ID         string  `bson:"id" json:"id"`
	Username   *string `bson:"username" json:"username"`
	Role       *string `bson:"role" json:"role"`
	ProfilePic *string `bson:"profile_pic" json:"profile_pic"`
}

// Notification is an append-only record created by domain events.
// Only per-recipient read/response state is ever mutated.
type Notification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type             NotificationType   `bson:"type" json:"type"`
	Title            string             `bson:"title" json:"title"`
	Message          string             `bson:"message" json:"message"`
	Related          RelatedEntity      `bson:"related_entity" json:"related_entity"`
	Recipients       []Recipient        `bson:"recipients" json:"recipients"`
	Sender           Sender             `bson:"sender" json:"sender"`
	ActionRequired   bool               `bson:"action_required" json:"action_required"`
	ActionType       string             `bson:"action_type,omitempty" json:"action_type,omitempty"`
	ActionLink       string             `bson:"action_link,omitempty" json:"action_link,omitempty"`
	ResponseDeadline *time.Time         `bson:"response_deadline,omitempty" json:"response_deadline,omitempty"`
	Priority         string             `bson:"priority" json:"priority"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}
