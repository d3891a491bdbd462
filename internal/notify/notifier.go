package notify

import (
	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/domain"
)

// Notifier receives status events. Notify must not block on slow consumers
// and reports nothing back to the caller.
type Notifier interface {
	Notify(event domain.Event)
}

// Nop discards every event
type Nop struct{}

func (Nop) Notify(domain.Event) {}

// Multi fans an event out to several notifiers in order
type Multi []Notifier

func (m Multi) Notify(event domain.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(event)
		}
	}
}

// LogNotifier writes events to a zap logger
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(event domain.Event) {
	fields := []zap.Field{
		zap.String("session_id", event.SessionID),
		zap.String("title", event.Title),
		zap.String("description", event.Description),
	}
	if event.Level == domain.EventError {
		n.logger.Warn("status event", fields...)
		return
	}
	n.logger.Info("status event", fields...)
}

// EventStore persists events
type EventStore interface {
	Create(event *domain.Event) error
}

// StoreNotifier persists events to an EventStore. Storage failures are
// logged and otherwise ignored.
type StoreNotifier struct {
	store  EventStore
	logger *zap.Logger
}

// NewStoreNotifier creates a new store notifier
func NewStoreNotifier(store EventStore, logger *zap.Logger) *StoreNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreNotifier{store: store, logger: logger}
}

func (n *StoreNotifier) Notify(event domain.Event) {
	if err := n.store.Create(&event); err != nil {
		n.logger.Error("failed to persist event",
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}
