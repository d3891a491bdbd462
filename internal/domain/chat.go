package domain

import "time"

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage represents one turn of the conversation
type ChatMessage struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusKind is the tag of a conversation status
type StatusKind string

const (
	StatusIdle                StatusKind = "idle"
	StatusAwaitingSuggestions StatusKind = "awaiting_suggestions"
	StatusAwaitingAnswer      StatusKind = "awaiting_answer"
	StatusError               StatusKind = "error"
)

// Status is the current conversation status. Reason is only set for errors.
type Status struct {
	Kind   StatusKind `json:"kind"`
	Reason string     `json:"reason,omitempty"`
}

// IdleStatus returns the idle status
func IdleStatus() Status {
	return Status{Kind: StatusIdle}
}

// ErrorStatus returns an error status carrying the failure message
func ErrorStatus(reason string) Status {
	return Status{Kind: StatusError, Reason: reason}
}

// Snapshot is a consistent, detached copy of a conversation's state
type Snapshot struct {
	SessionID       string        `json:"session_id"`
	Document        *Document     `json:"document,omitempty"`
	History         []ChatMessage `json:"history"`
	Suggestions     []string      `json:"suggestions"`
	PendingQuestion string        `json:"pending_question,omitempty"`
	Status          Status        `json:"status"`
}

// QuestionRequest is the request to submit or draft a question
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// QuestionResponse is the response to a submitted question
type QuestionResponse struct {
	Answer   *ChatMessage `json:"answer"`
	Snapshot Snapshot     `json:"session"`
}

// SummaryResult is the response to a summary request
type SummaryResult struct {
	SessionID string `json:"session_id"`
	Summary   string `json:"summary"`
}

// SessionRecord is the audit trail of a session. It never holds the
// document or the conversation itself.
type SessionRecord struct {
	ID            string     `json:"id"`
	DocumentName  string     `json:"document_name,omitempty"`
	DocumentMIME  string     `json:"document_mime,omitempty"`
	DocumentSize  int64      `json:"document_size"`
	QuestionCount int        `json:"question_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// Stats represents system statistics
type Stats struct {
	ActiveSessions int `json:"active_sessions"`
	TotalSessions  int `json:"total_sessions"`
	TotalQuestions int `json:"total_questions"`
	TotalEvents    int `json:"total_events"`
	ErrorEvents    int `json:"error_events"`
	SuccessEvents  int `json:"success_events"`
}
