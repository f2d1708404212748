package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/store"
)

// Notification kinds. Prefs are stored per kind.
const (
	KindPhaseStatus    = "phase.status"
	KindPunchAssigned  = "punch.assigned"
	KindWaiverSigned   = "waiver.signed"
	KindPayAppDecision = "payapp.decision"
	KindReportReady    = "report.ready"
	KindMention        = "mention"
)

// Notifier delivers notifications according to each user's preferences.
// In-app delivery writes a row and pushes it over the websocket hub; email
// delivery is logged until an outbound mail provider is wired up.
type Notifier struct {
	notifications *store.NotificationRepo
	hub           *Hub
	logger        *zap.Logger
}

func NewNotifier(notifications *store.NotificationRepo, hub *Hub, logger *zap.Logger) *Notifier {
	return &Notifier{
		notifications: notifications,
		hub:           hub,
		logger:        logger,
	}
}

// Message is an outbound notification before preference filtering.
type Message struct {
	CompanyID  uuid.UUID
	UserID     uuid.UUID
	Kind       string
	Title      string
	Body       string
	EntityType string
	EntityID   *uuid.UUID
}

// Send delivers one notification to one user, honoring their prefs for the
// message kind. Unknown kinds fall back to the default pref (everything on).
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	pref, err := n.notifications.GetPref(ctx, msg.CompanyID, msg.UserID, msg.Kind)
	if err != nil {
		return err
	}

	if pref.InApp {
		notification := &models.Notification{
			CompanyID:  msg.CompanyID,
			UserID:     msg.UserID,
			Kind:       msg.Kind,
			Title:      msg.Title,
			Body:       msg.Body,
			EntityType: msg.EntityType,
			EntityID:   msg.EntityID,
		}
		if err := n.notifications.Insert(ctx, notification); err != nil {
			return err
		}

		if n.hub != nil {
			n.hub.Push(msg.UserID, &Event{Type: "notification", Data: notification})
		}
	}

	if pref.Email {
		// TODO: send through the mail provider once SMTP credentials land.
		n.logger.Info("email notification",
			zap.Stringer("user", msg.UserID),
			zap.String("kind", msg.Kind),
			zap.String("title", msg.Title))
	}

	return nil
}

// Fanout delivers the same notification to several users, skipping the
// actor. A failed recipient is logged, not fatal, so one bad row does not
// starve the rest.
func (n *Notifier) Fanout(ctx context.Context, actorID uuid.UUID, userIDs []uuid.UUID, msg Message) {
	for _, userID := range userIDs {
		if userID == actorID {
			continue
		}
		msg.UserID = userID
		if err := n.Send(ctx, msg); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.Stringer("user", userID), zap.Error(err))
		}
	}
}
