package repository

import (
	"database/sql"
	"time"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// SessionRepository keeps the session audit trail
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create records a new session
func (r *SessionRepository) Create(id string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		INSERT INTO sessions (id, created_at, updated_at)
		VALUES (?, ?, ?)
	`, id, now, now)
	return err
}

// RecordDocument stores the metadata of the session's current document
func (r *SessionRepository) RecordDocument(id string, doc *domain.Document) error {
	_, err := r.db.Exec(`
		UPDATE sessions SET document_name = ?, document_mime = ?, document_size = ?, updated_at = ?
		WHERE id = ?
	`, doc.Filename, doc.MIMEType, doc.Size, time.Now(), id)
	return err
}

// RecordQuestion increments the question counter of a session
func (r *SessionRepository) RecordQuestion(id string) error {
	_, err := r.db.Exec(`
		UPDATE sessions SET question_count = question_count + 1, updated_at = ?
		WHERE id = ?
	`, time.Now(), id)
	return err
}

// End marks a session as ended
func (r *SessionRepository) End(id string) error {
	now := time.Now()
	_, err := r.db.Exec(`UPDATE sessions SET ended_at = ?, updated_at = ? WHERE id = ? AND ended_at IS NULL`, now, now, id)
	return err
}

// Get retrieves a session record by ID
func (r *SessionRepository) Get(id string) (*domain.SessionRecord, error) {
	record := &domain.SessionRecord{}
	var name, mimeType sql.NullString
	var endedAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, document_name, document_mime, document_size, question_count, created_at, updated_at, ended_at
		FROM sessions WHERE id = ?
	`, id).Scan(&record.ID, &name, &mimeType, &record.DocumentSize, &record.QuestionCount,
		&record.CreatedAt, &record.UpdatedAt, &endedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record.DocumentName = name.String
	record.DocumentMIME = mimeType.String
	if endedAt.Valid {
		record.EndedAt = &endedAt.Time
	}
	return record, nil
}

// Count returns the total number of sessions ever created
func (r *SessionRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

// CountQuestions returns the total number of questions asked
func (r *SessionRepository) CountQuestions() (int, error) {
	var count sql.NullInt64
	err := r.db.QueryRow(`SELECT SUM(question_count) FROM sessions`).Scan(&count)
	return int(count.Int64), err
}
