package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/jobs"
	"github.com/beamline/beamline/internal/notify"
)

// RegisterJobHandlers wires the background job types to their service
// implementations on the worker pool.
func (s *Services) RegisterJobHandlers(pool *jobs.WorkerPool, deps Deps) {
	pool.RegisterHandler(jobs.TypeReportGenerate, s.handleReportGenerate(deps))
	pool.RegisterHandler(jobs.TypeVoiceTranscribe, s.handleVoiceTranscribe(deps))
	pool.RegisterHandler(jobs.TypeNotificationFanout, s.handleNotificationFanout(deps))
	pool.RegisterHandler(jobs.TypeQuickBooksSync, s.handleQuickBooksSync(deps))
}

func (s *Services) handleReportGenerate(deps Deps) jobs.Handler {
	return func(ctx context.Context, payload map[string]any) error {
		companyID, err := payloadUUID(payload, "company_id")
		if err != nil {
			return err
		}
		projectID, err := payloadUUID(payload, "project_id")
		if err != nil {
			return err
		}

		report, err := s.Reports.GenerateForSchedule(ctx, companyID, projectID)
		if err != nil {
			return err
		}
		s.Reports.logGenerated(projectID, report)
		return nil
	}
}

func (s *Services) handleVoiceTranscribe(deps Deps) jobs.Handler {
	return func(ctx context.Context, payload map[string]any) error {
		companyID, err := payloadUUID(payload, "company_id")
		if err != nil {
			return err
		}
		noteID, err := payloadUUID(payload, "voice_note_id")
		if err != nil {
			return err
		}

		note, err := deps.Store.VoiceNotes.Get(ctx, companyID, noteID)
		if err != nil {
			return err
		}

		rc, contentType, err := deps.Blobs.Get(ctx, note.FileKey)
		if err != nil {
			return err
		}
		audio, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}

		transcript, err := deps.Generator.Transcribe(ctx, audio, contentType)
		if err != nil {
			return err
		}

		if err := deps.Store.VoiceNotes.SetTranscript(ctx, companyID, noteID, transcript); err != nil {
			return err
		}

		deps.Logger.Info("voice note transcribed",
			zap.Stringer("voice_note", noteID),
			zap.Int("chars", len(transcript)))
		return nil
	}
}

func (s *Services) handleNotificationFanout(deps Deps) jobs.Handler {
	return func(ctx context.Context, payload map[string]any) error {
		companyID, err := payloadUUID(payload, "company_id")
		if err != nil {
			return err
		}
		actorID, err := payloadUUID(payload, "actor_id")
		if err != nil {
			return err
		}

		rawIDs, ok := payload["user_ids"].([]any)
		if !ok {
			return fmt.Errorf("payload user_ids must be a list")
		}
		userIDs := make([]uuid.UUID, 0, len(rawIDs))
		for _, raw := range rawIDs {
			str, ok := raw.(string)
			if !ok {
				return fmt.Errorf("payload user_ids must be strings")
			}
			id, err := uuid.Parse(str)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", str, err)
			}
			userIDs = append(userIDs, id)
		}

		msg := notify.Message{
			CompanyID:  companyID,
			Kind:       payloadString(payload, "kind"),
			Title:      payloadString(payload, "title"),
			Body:       payloadString(payload, "body"),
			EntityType: payloadString(payload, "entity_type"),
		}
		if entityID, err := payloadUUID(payload, "entity_id"); err == nil {
			msg.EntityID = &entityID
		}

		deps.Notifier.Fanout(ctx, actorID, userIDs, msg)
		return nil
	}
}

func (s *Services) handleQuickBooksSync(deps Deps) jobs.Handler {
	return func(ctx context.Context, payload map[string]any) error {
		companyID, err := payloadUUID(payload, "company_id")
		if err != nil {
			return err
		}
		_, err = s.QuickBooks.SyncCompany(ctx, companyID)
		return err
	}
}

func payloadUUID(payload map[string]any, key string) (uuid.UUID, error) {
	raw, ok := payload[key].(string)
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("payload missing %s", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
