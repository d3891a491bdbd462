package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/docuchat/internal/domain"
)

const defaultEventLimit = 100

// EventRepository handles status event persistence
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create stores an event, assigning an ID and timestamp when missing
func (r *EventRepository) Create(event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO events (id, session_id, level, title, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.SessionID, string(event.Level), event.Title, event.Description, event.CreatedAt)

	return err
}

// List returns events matching the filter, newest first
func (r *EventRepository) List(filter domain.EventFilter) ([]*domain.Event, error) {
	query := `SELECT id, session_id, level, title, description, created_at FROM events`
	var conds []string
	var args []any

	if filter.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, string(filter.Level))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		event := &domain.Event{}
		var level string
		var description sql.NullString

		if err := rows.Scan(&event.ID, &event.SessionID, &level, &event.Title,
			&description, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Level = domain.EventLevel(level)
		event.Description = description.String
		events = append(events, event)
	}

	return events, rows.Err()
}

// Count returns the number of events, optionally restricted to one level
func (r *EventRepository) Count(level domain.EventLevel) (int, error) {
	var count int
	var err error
	if level == "" {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count)
	} else {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM events WHERE level = ?`, string(level)).Scan(&count)
	}
	return count, err
}
