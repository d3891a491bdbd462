package service

import (
	"context"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// EventLister reads persisted status events
type EventLister interface {
	List(filter domain.EventFilter) ([]*domain.Event, error)
	Count(level domain.EventLevel) (int, error)
}

// SessionStats reads session audit data
type SessionStats interface {
	Get(id string) (*domain.SessionRecord, error)
	Count() (int, error)
	CountQuestions() (int, error)
}

// AdminService handles admin operations
type AdminService struct {
	events   EventLister
	sessions SessionStats
	chat     *ChatService
}

// NewAdminService creates a new admin service
func NewAdminService(events EventLister, sessions SessionStats, chat *ChatService) *AdminService {
	return &AdminService{
		events:   events,
		sessions: sessions,
		chat:     chat,
	}
}

// GetStats returns system statistics
func (s *AdminService) GetStats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{
		ActiveSessions: s.chat.ActiveSessions(),
	}

	var err error
	if stats.TotalSessions, err = s.sessions.Count(); err != nil {
		return nil, err
	}
	if stats.TotalQuestions, err = s.sessions.CountQuestions(); err != nil {
		return nil, err
	}
	if stats.TotalEvents, err = s.events.Count(""); err != nil {
		return nil, err
	}
	if stats.ErrorEvents, err = s.events.Count(domain.EventError); err != nil {
		return nil, err
	}
	if stats.SuccessEvents, err = s.events.Count(domain.EventSuccess); err != nil {
		return nil, err
	}

	return stats, nil
}

// ListEvents returns persisted events matching the filter
func (s *AdminService) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	return s.events.List(filter)
}

// GetSession returns the audit record of a session
func (s *AdminService) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	record, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return record, nil
}
