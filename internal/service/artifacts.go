package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/blob"
	"github.com/beamline/beamline/internal/jobs"
	"github.com/beamline/beamline/internal/models"
)

// ArtifactService handles documents, photos with annotations, phase
// checklists and voice notes. Uploads go through the blob store; the
// database holds metadata and the file key.
type ArtifactService struct {
	deps Deps
}

// signedURLTTL is how long a download link stays valid.
const signedURLTTL = 15 * time.Minute

// DocumentInput carries document metadata supplied alongside the upload.
type DocumentInput struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// UploadDocument stores the file and inserts a metadata row. Re-uploading
// under the same title creates the next version.
func (s *ArtifactService) UploadDocument(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in DocumentInput, contentType string, r io.Reader) (*models.Document, error) {
	if !id.Can(auth.ArtifactsCreate) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, NewValidationErrorf("title", "is required")
	}

	docID := uuid.New()
	key := blob.ObjectKey(id.CompanyID, docID)
	size, err := s.deps.Blobs.Put(ctx, key, contentType, r)
	if err != nil {
		return nil, err
	}

	d := &models.Document{
		ID:          docID,
		CompanyID:   id.CompanyID,
		ProjectID:   projectID,
		Title:       in.Title,
		FileKey:     key,
		ContentType: contentType,
		SizeBytes:   size,
		Tags:        in.Tags,
		UploadedBy:  id.UserID,
	}
	if err := s.deps.Store.Documents.Create(ctx, d); err != nil {
		s.cleanupBlob(ctx, key)
		return nil, err
	}

	s.deps.Recorder.Record(ctx, activity.Entry(
		id.CompanyID, &projectID, id.UserID, activity.ActionDocumentUploaded, "document", d.ID))
	return d, nil
}

// GetDocument returns document metadata.
func (s *ArtifactService) GetDocument(ctx context.Context, id *auth.Identity, docID uuid.UUID) (*models.Document, error) {
	return s.deps.Store.Documents.Get(ctx, id.CompanyID, docID)
}

// ListDocuments returns a project's documents, newest version first.
func (s *ArtifactService) ListDocuments(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.Document, error) {
	return s.deps.Store.Documents.ListByProject(ctx, id.CompanyID, projectID)
}

// UpdateDocument edits title and tags.
func (s *ArtifactService) UpdateDocument(ctx context.Context, id *auth.Identity, docID uuid.UUID, in DocumentInput) (*models.Document, error) {
	if !id.Can(auth.ArtifactsUpdate) {
		return nil, auth.ErrForbidden
	}

	d, err := s.deps.Store.Documents.Get(ctx, id.CompanyID, docID)
	if err != nil {
		return nil, err
	}
	d.Title = in.Title
	d.Tags = in.Tags
	if err := s.deps.Store.Documents.UpdateMeta(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDocument removes the row and its blob.
func (s *ArtifactService) DeleteDocument(ctx context.Context, id *auth.Identity, docID uuid.UUID) error {
	if !id.Can(auth.ArtifactsDelete) {
		return auth.ErrForbidden
	}

	d, err := s.deps.Store.Documents.Get(ctx, id.CompanyID, docID)
	if err != nil {
		return err
	}
	if err := s.deps.Store.Documents.Delete(ctx, id.CompanyID, docID); err != nil {
		return err
	}
	s.cleanupBlob(ctx, d.FileKey)
	return nil
}

// DocumentURL returns a time-limited download link.
func (s *ArtifactService) DocumentURL(ctx context.Context, id *auth.Identity, docID uuid.UUID) (string, error) {
	d, err := s.deps.Store.Documents.Get(ctx, id.CompanyID, docID)
	if err != nil {
		return "", err
	}
	return s.deps.Blobs.SignedURL(d.FileKey, signedURLTTL)
}

// PhotoInput carries photo metadata supplied alongside the upload.
type PhotoInput struct {
	PhaseID *uuid.UUID `json:"phase_id"`
	Caption string     `json:"caption"`
	TakenAt *time.Time `json:"taken_at"`
	Tags    []string   `json:"tags"`
}

// UploadPhoto stores the image and inserts a metadata row.
func (s *ArtifactService) UploadPhoto(ctx context.Context, id *auth.Identity, projectID uuid.UUID, in PhotoInput, contentType string, r io.Reader) (*models.Photo, error) {
	if !id.Can(auth.ArtifactsCreate) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}
	if in.PhaseID != nil {
		if _, err := s.deps.Store.Phases.Get(ctx, id.CompanyID, *in.PhaseID); err != nil {
			return nil, err
		}
	}

	photoID := uuid.New()
	key := blob.ObjectKey(id.CompanyID, photoID)
	if _, err := s.deps.Blobs.Put(ctx, key, contentType, r); err != nil {
		return nil, err
	}

	p := &models.Photo{
		ID:        photoID,
		CompanyID: id.CompanyID,
		ProjectID: projectID,
		PhaseID:   in.PhaseID,
		FileKey:   key,
		Caption:   in.Caption,
		TakenAt:   in.TakenAt,
		Tags:      in.Tags,
	}
	if err := s.deps.Store.Photos.Create(ctx, p); err != nil {
		s.cleanupBlob(ctx, key)
		return nil, err
	}
	return p, nil
}

// GetPhoto returns photo metadata.
func (s *ArtifactService) GetPhoto(ctx context.Context, id *auth.Identity, photoID uuid.UUID) (*models.Photo, error) {
	return s.deps.Store.Photos.Get(ctx, id.CompanyID, photoID)
}

// ListPhotos returns a project's photos.
func (s *ArtifactService) ListPhotos(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.Photo, error) {
	return s.deps.Store.Photos.ListByProject(ctx, id.CompanyID, projectID)
}

// UpdatePhoto edits caption, tags and the phase pin.
func (s *ArtifactService) UpdatePhoto(ctx context.Context, id *auth.Identity, photoID uuid.UUID, in PhotoInput) (*models.Photo, error) {
	if !id.Can(auth.ArtifactsUpdate) {
		return nil, auth.ErrForbidden
	}

	p, err := s.deps.Store.Photos.Get(ctx, id.CompanyID, photoID)
	if err != nil {
		return nil, err
	}
	p.PhaseID = in.PhaseID
	p.Caption = in.Caption
	p.TakenAt = in.TakenAt
	p.Tags = in.Tags
	if err := s.deps.Store.Photos.UpdateMeta(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePhoto removes the row, its annotations (cascade) and its blob.
func (s *ArtifactService) DeletePhoto(ctx context.Context, id *auth.Identity, photoID uuid.UUID) error {
	if !id.Can(auth.ArtifactsDelete) {
		return auth.ErrForbidden
	}

	p, err := s.deps.Store.Photos.Get(ctx, id.CompanyID, photoID)
	if err != nil {
		return err
	}
	if err := s.deps.Store.Photos.Delete(ctx, id.CompanyID, photoID); err != nil {
		return err
	}
	s.cleanupBlob(ctx, p.FileKey)
	return nil
}

// PhotoURL returns a time-limited download link.
func (s *ArtifactService) PhotoURL(ctx context.Context, id *auth.Identity, photoID uuid.UUID) (string, error) {
	p, err := s.deps.Store.Photos.Get(ctx, id.CompanyID, photoID)
	if err != nil {
		return "", err
	}
	return s.deps.Blobs.SignedURL(p.FileKey, signedURLTTL)
}

// AnnotationInput is a positioned note on a photo. X and Y are fractions
// in [0,1].
type AnnotationInput struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Note string  `json:"note"`
}

// Annotate adds a note to a photo.
func (s *ArtifactService) Annotate(ctx context.Context, id *auth.Identity, photoID uuid.UUID, in AnnotationInput) (*models.PhotoAnnotation, error) {
	if !id.Can(auth.ArtifactsCreate) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Photos.Get(ctx, id.CompanyID, photoID); err != nil {
		return nil, err
	}
	if in.X < 0 || in.X > 1 || in.Y < 0 || in.Y > 1 {
		return nil, NewValidationErrorf("position", "x and y must be within [0,1]")
	}

	a := &models.PhotoAnnotation{
		CompanyID: id.CompanyID,
		PhotoID:   photoID,
		AuthorID:  id.UserID,
		X:         in.X,
		Y:         in.Y,
		Note:      in.Note,
	}
	if err := s.deps.Store.Annotations.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Annotations returns a photo's notes.
func (s *ArtifactService) Annotations(ctx context.Context, id *auth.Identity, photoID uuid.UUID) ([]*models.PhotoAnnotation, error) {
	return s.deps.Store.Annotations.ListByPhoto(ctx, id.CompanyID, photoID)
}

// DeleteAnnotation removes a note.
func (s *ArtifactService) DeleteAnnotation(ctx context.Context, id *auth.Identity, annotationID uuid.UUID) error {
	if !id.Can(auth.ArtifactsDelete) {
		return auth.ErrForbidden
	}
	return s.deps.Store.Annotations.Delete(ctx, id.CompanyID, annotationID)
}

// AddChecklistItem appends a line to a phase checklist.
func (s *ArtifactService) AddChecklistItem(ctx context.Context, id *auth.Identity, phaseID uuid.UUID, body string) (*models.ChecklistItem, error) {
	if !id.Can(auth.ArtifactsCreate) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Phases.Get(ctx, id.CompanyID, phaseID); err != nil {
		return nil, err
	}
	if body == "" {
		return nil, NewValidationErrorf("body", "is required")
	}

	c := &models.ChecklistItem{
		CompanyID: id.CompanyID,
		PhaseID:   phaseID,
		Body:      body,
	}
	if err := s.deps.Store.Checklists.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Checklist returns a phase's checklist in position order.
func (s *ArtifactService) Checklist(ctx context.Context, id *auth.Identity, phaseID uuid.UUID) ([]*models.ChecklistItem, error) {
	return s.deps.Store.Checklists.ListByPhase(ctx, id.CompanyID, phaseID)
}

// ToggleChecklistItem flips an item's done state, stamping who and when.
func (s *ArtifactService) ToggleChecklistItem(ctx context.Context, id *auth.Identity, itemID uuid.UUID) (*models.ChecklistItem, error) {
	if !id.Can(auth.ArtifactsUpdate) {
		return nil, auth.ErrForbidden
	}

	c, err := s.deps.Store.Checklists.Get(ctx, id.CompanyID, itemID)
	if err != nil {
		return nil, err
	}

	old := map[string]any{
		"done":    c.Done,
		"done_by": activity.UUIDField(c.DoneBy),
		"done_at": activity.TimeField(c.DoneAt),
	}
	if c.Done {
		c.Done = false
		c.DoneBy = nil
		c.DoneAt = nil
	} else {
		now := time.Now()
		c.Done = true
		c.DoneBy = &id.UserID
		c.DoneAt = &now
	}

	if err := s.deps.Store.Checklists.SetDone(ctx, c); err != nil {
		return nil, err
	}

	phase, err := s.deps.Store.Phases.Get(ctx, id.CompanyID, c.PhaseID)
	if err == nil {
		entry := activity.Entry(id.CompanyID, &phase.ProjectID, id.UserID, activity.ActionChecklistToggled, "checklist_item", c.ID)
		entry.OldValues = old
		entry.NewValues = map[string]any{
			"done":    c.Done,
			"done_by": activity.UUIDField(c.DoneBy),
			"done_at": activity.TimeField(c.DoneAt),
		}
		s.deps.Recorder.Record(ctx, entry)
	}
	return c, nil
}

// DeleteChecklistItem removes a line.
func (s *ArtifactService) DeleteChecklistItem(ctx context.Context, id *auth.Identity, itemID uuid.UUID) error {
	if !id.Can(auth.ArtifactsDelete) {
		return auth.ErrForbidden
	}
	return s.deps.Store.Checklists.Delete(ctx, id.CompanyID, itemID)
}

// UploadVoiceNote stores the audio, inserts the row and queues a
// transcription job.
func (s *ArtifactService) UploadVoiceNote(ctx context.Context, id *auth.Identity, projectID uuid.UUID, durationSeconds int, contentType string, r io.Reader) (*models.VoiceNote, error) {
	if !id.Can(auth.ArtifactsCreate) {
		return nil, auth.ErrForbidden
	}

	if _, err := s.deps.Store.Projects.Get(ctx, id.CompanyID, projectID); err != nil {
		return nil, err
	}

	noteID := uuid.New()
	key := blob.ObjectKey(id.CompanyID, noteID)
	if _, err := s.deps.Blobs.Put(ctx, key, contentType, r); err != nil {
		return nil, err
	}

	v := &models.VoiceNote{
		ID:              noteID,
		CompanyID:       id.CompanyID,
		ProjectID:       projectID,
		AuthorID:        id.UserID,
		FileKey:         key,
		DurationSeconds: durationSeconds,
	}
	if err := s.deps.Store.VoiceNotes.Create(ctx, v); err != nil {
		s.cleanupBlob(ctx, key)
		return nil, err
	}

	job := jobs.New(jobs.TypeVoiceTranscribe, map[string]any{
		"company_id":    id.CompanyID.String(),
		"voice_note_id": v.ID.String(),
		"content_type":  contentType,
	})
	if err := s.deps.Queue.Enqueue(ctx, job); err != nil {
		s.deps.Logger.Warn("failed to queue transcription",
			zap.Stringer("voice_note", v.ID), zap.Error(err))
	}
	return v, nil
}

// GetVoiceNote returns one voice note.
func (s *ArtifactService) GetVoiceNote(ctx context.Context, id *auth.Identity, noteID uuid.UUID) (*models.VoiceNote, error) {
	return s.deps.Store.VoiceNotes.Get(ctx, id.CompanyID, noteID)
}

// ListVoiceNotes returns a project's voice notes.
func (s *ArtifactService) ListVoiceNotes(ctx context.Context, id *auth.Identity, projectID uuid.UUID) ([]*models.VoiceNote, error) {
	return s.deps.Store.VoiceNotes.ListByProject(ctx, id.CompanyID, projectID)
}

// VoiceNoteURL returns a time-limited download link.
func (s *ArtifactService) VoiceNoteURL(ctx context.Context, id *auth.Identity, noteID uuid.UUID) (string, error) {
	v, err := s.deps.Store.VoiceNotes.Get(ctx, id.CompanyID, noteID)
	if err != nil {
		return "", err
	}
	return s.deps.Blobs.SignedURL(v.FileKey, signedURLTTL)
}

// DeleteVoiceNote removes the row and its blob.
func (s *ArtifactService) DeleteVoiceNote(ctx context.Context, id *auth.Identity, noteID uuid.UUID) error {
	if !id.Can(auth.ArtifactsDelete) {
		return auth.ErrForbidden
	}

	v, err := s.deps.Store.VoiceNotes.Get(ctx, id.CompanyID, noteID)
	if err != nil {
		return err
	}
	if err := s.deps.Store.VoiceNotes.Delete(ctx, id.CompanyID, noteID); err != nil {
		return err
	}
	s.cleanupBlob(ctx, v.FileKey)
	return nil
}

func (s *ArtifactService) cleanupBlob(ctx context.Context, key string) {
	if err := s.deps.Blobs.Delete(ctx, key); err != nil {
		s.deps.Logger.Warn("failed to delete blob", zap.String("key", key), zap.Error(err))
	}
}
