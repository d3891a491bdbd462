package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/docuchat/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	require.NoError(t, repo.Create("s1"))
	require.NoError(t, repo.Create("s2"))

	require.NoError(t, repo.RecordDocument("s1", &domain.Document{
		Filename: "report.pdf",
		MIMEType: "application/pdf",
		Size:     42,
	}))
	require.NoError(t, repo.RecordQuestion("s1"))
	require.NoError(t, repo.RecordQuestion("s1"))
	require.NoError(t, repo.RecordQuestion("s2"))

	record, err := repo.Get("s1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "report.pdf", record.DocumentName)
	assert.Equal(t, "application/pdf", record.DocumentMIME)
	assert.Equal(t, int64(42), record.DocumentSize)
	assert.Equal(t, 2, record.QuestionCount)
	assert.Nil(t, record.EndedAt)

	require.NoError(t, repo.End("s1"))
	record, err = repo.Get("s1")
	require.NoError(t, err)
	assert.NotNil(t, record.EndedAt)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	questions, err := repo.CountQuestions()
	require.NoError(t, err)
	assert.Equal(t, 3, questions)
}

func TestSessionRepositoryGetMissing(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	record, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, record)

	questions, err := repo.CountQuestions()
	require.NoError(t, err)
	assert.Equal(t, 0, questions)
}

func TestEventRepositoryCreateAndList(t *testing.T) {
	repo := NewEventRepository(newTestDB(t))
	base := time.Now().Add(-time.Minute)

	events := []*domain.Event{
		{SessionID: "a", Level: domain.EventSuccess, Title: "Success", Description: "uploaded", CreatedAt: base},
		{SessionID: "a", Level: domain.EventError, Title: "Error", Description: "quota", CreatedAt: base.Add(time.Second)},
		{SessionID: "b", Level: domain.EventSuccess, Title: "Suggestions Generated", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range events {
		require.NoError(t, repo.Create(e))
		assert.NotEmpty(t, e.ID)
	}

	all, err := repo.List(domain.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Suggestions Generated", all[0].Title)

	forA, err := repo.List(domain.EventFilter{SessionID: "a"})
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.Equal(t, domain.EventError, forA[0].Level)
	assert.Equal(t, "quota", forA[0].Description)

	errorsOnly, err := repo.List(domain.EventFilter{Level: domain.EventError})
	require.NoError(t, err)
	require.Len(t, errorsOnly, 1)

	limited, err := repo.List(domain.EventFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	total, err := repo.Count("")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	successes, err := repo.Count(domain.EventSuccess)
	require.NoError(t, err)
	assert.Equal(t, 2, successes)
}

func TestEventRepositoryListEmpty(t *testing.T) {
	repo := NewEventRepository(newTestDB(t))
	events, err := repo.List(domain.EventFilter{SessionID: "none"})
	require.NoError(t, err)
	assert.Empty(t, events)
}
