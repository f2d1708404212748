package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

// VoiceNoteRepo persists recorded field notes.
type VoiceNoteRepo struct {
	db *sql.DB
}

const voiceNoteColumns = `id, company_id, project_id, author_id, file_key,
	duration_seconds, transcript, created_at, updated_at`

func scanVoiceNote(scan func(dest ...any) error) (*models.VoiceNote, error) {
	var v models.VoiceNote
	err := scan(
		&v.ID, &v.CompanyID, &v.ProjectID, &v.AuthorID, &v.FileKey,
		&v.DurationSeconds, &v.Transcript, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &v, nil
}

// Create inserts a voice note with an empty transcript.
func (r *VoiceNoteRepo) Create(ctx context.Context, v *models.VoiceNote) error {
	now := time.Now()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO voice_notes (id, company_id, project_id, author_id, file_key,
			duration_seconds, transcript, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.CompanyID, v.ProjectID, v.AuthorID, v.FileKey,
		v.DurationSeconds, v.Transcript, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert voice note: %w", ConvertDBError(err))
	}
	return nil
}

// Get returns a voice note by ID scoped to a company.
func (r *VoiceNoteRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*models.VoiceNote, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+voiceNoteColumns+` FROM voice_notes WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanVoiceNote(row.Scan)
}

// ListByProject returns a project's voice notes, newest first.
func (r *VoiceNoteRepo) ListByProject(ctx context.Context, companyID, projectID uuid.UUID) ([]*models.VoiceNote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+voiceNoteColumns+` FROM voice_notes
		 WHERE project_id = $1 AND company_id = $2 ORDER BY created_at DESC`,
		projectID, companyID,
	)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var notes []*models.VoiceNote
	for rows.Next() {
		v, err := scanVoiceNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		notes = append(notes, v)
	}
	return notes, rows.Err()
}

// SetTranscript writes the transcription result. Called by the
// voice.transcribe job.
func (r *VoiceNoteRepo) SetTranscript(ctx context.Context, companyID, id uuid.UUID, transcript string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE voice_notes SET transcript = $1, updated_at = $2
		WHERE id = $3 AND company_id = $4`,
		transcript, time.Now(), id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to set transcript: %w", ConvertDBError(err))
	}
	return requireRow(res)
}

// Delete removes a voice note row.
func (r *VoiceNoteRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM voice_notes WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete voice note: %w", ConvertDBError(err))
	}
	return requireRow(res)
}
