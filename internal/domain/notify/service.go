// Package notify turns domain events into notification records.
//
// Dispatch is fire-and-forget: it never returns an error and never
// blocks the caller's state change on delivery. Each record is persisted
// through the Sink and, when a bus is configured, published as JSON on
// <prefix>.notifications.<type>.
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/collabhub/internal/app/system/apperr"
	"github.com/dalemusser/collabhub/internal/app/system/eventbus"
	"github.com/dalemusser/collabhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collabhub/internal/app/system/metrics"
	"github.com/dalemusser/collabhub/internal/app/system/timeouts"
	"github.com/dalemusser/collabhub/internal/domain/identity"
	"github.com/dalemusser/collabhub/internal/domain/kit"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultListLimit caps ListForRecipient when no limit is given.
const DefaultListLimit = 50

// Event describes one domain state change to notify about.
type Event struct {
	Type             models.NotificationType
	Title            string
	Message          string
	Related          models.RelatedEntity
	Recipients       []string
	SenderID         string
	ActionRequired   bool
	ActionType       string
	ActionLink       string
	ResponseDeadline *time.Time
	Priority         string
}

// Service dispatches and serves notifications.
type Service struct {
	kit.Base
	sink   Sink
	dir    identity.Directory
	bus    eventbus.Publisher
	prefix string
}

// NewService creates a notification service. bus may be nil.
func NewService(base kit.Base, sink Sink, dir identity.Directory, bus eventbus.Publisher, subjectPrefix string) *Service {
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{Base: base.Normalize(), sink: sink, dir: dir, bus: bus, prefix: subjectPrefix}
}

// Dispatch records ev for each distinct recipient. Failures are logged
// and counted.
func (s *Service) Dispatch(ctx context.Context, ev Event) {
	recipients := dedupe(ev.Recipients)
	if len(recipients) == 0 {
		return
	}

	// Delivery outlives a cancelled request; the state change already happened.
	ctx, cancel := timeouts.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium(), s.Log, "dispatch notification")
	defer cancel()

	n := s.build(ctx, ev, recipients)
	log := s.Log.With(
		zap.String("type", string(n.Type)),
		zap.String("related_id", n.Related.ID),
		zap.Int("recipients", len(recipients)),
	)

	if err := s.sink.Insert(ctx, n); err != nil {
		log.Error("notification not persisted", zap.Error(err))
		s.Metrics.Notification(string(n.Type), metrics.OutcomeError)
		return
	}
	s.Metrics.Notification(string(n.Type), metrics.OutcomeOK)

	subject := eventbus.Subject(s.prefix, "notifications", string(n.Type))
	if err := s.bus.Publish(ctx, subject, n); err != nil {
		log.Warn("notification not published", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *Service) build(ctx context.Context, ev Event, recipients []string) *models.Notification {
	prio := ev.Priority
	switch prio {
	case models.PriorityLow, models.PriorityNormal, models.PriorityHigh:
	default:
		prio = models.PriorityNormal
	}

	rs := make([]models.Recipient, 0, len(recipients))
	for _, id := range recipients {
		rs = append(rs, models.Recipient{UserID: id})
	}

	return &models.Notification{
		ID:               primitive.NewObjectID(),
		Type:             ev.Type,
		Title:            htmlsanitize.StripTags(ev.Title),
		Message:          htmlsanitize.StripTags(ev.Message),
		Related:          ev.Related,
		Recipients:       rs,
		Sender:           s.sender(ctx, ev.SenderID),
		ActionRequired:   ev.ActionRequired,
		ActionType:       ev.ActionType,
		ActionLink:       ev.ActionLink,
		ResponseDeadline: ev.ResponseDeadline,
		Priority:         prio,
		CreatedAt:        s.Clock(),
	}
}

func (s *Service) sender(ctx context.Context, id string) models.Sender {
	p := identity.Profile(ctx, s.dir, id, s.Log)
	return models.Sender{ID: id, Username: p.Username, Role: p.Role, ProfilePic: p.ProfilePic}
}

// MarkRead marks the notification read for one recipient. Repeating the
// call is a no-op.
func (s *Service) MarkRead(ctx context.Context, id, recipient string) error {
	oid, err := parseID(id)
	if err != nil {
		return s.Observe("notification.mark_read", err)
	}
	_, err = s.sink.MarkRead(ctx, oid, recipient, s.Clock())
	return s.Observe("notification.mark_read", kit.NotFound(err, "notification"))
}

// Respond records one recipient's response. Only the first response is
// kept; later calls succeed without changing it.
func (s *Service) Respond(ctx context.Context, id, recipient, response string) error {
	oid, err := parseID(id)
	if err != nil {
		return s.Observe("notification.respond", err)
	}
	response = htmlsanitize.StripTags(response)
	if response == "" {
		return s.Observe("notification.respond", apperr.Validation("response is required"))
	}
	_, err = s.sink.Respond(ctx, oid, recipient, response, s.Clock())
	return s.Observe("notification.respond", kit.NotFound(err, "notification"))
}

// ListForRecipient returns the newest notifications for recipient.
func (s *Service) ListForRecipient(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	out, err := s.sink.ListForRecipient(ctx, recipient, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("notification")
	}
	return oid, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

