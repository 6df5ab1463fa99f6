package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fourall/internal/database"
	"fourall/internal/models"
)

var actionRowColumns = []string{"id", "session_id", "action_type", "data", "created_at", "retry_count", "max_retries", "status", "last_error"}

func TestQueueRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t, database.NewPostgresDialect())
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)).
		WithArgs("a1", "s1", "transfer", `{"amount":10}`, sqlmock.AnyArg(), 0, 3, "queued", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewQueueRepository(db).Insert(context.Background(), &models.QueuedAction{
		ID:         "a1",
		SessionID:  "s1",
		Type:       models.ActionTransfer,
		Data:       json.RawMessage(`{"amount":10}`),
		Timestamp:  now,
		MaxRetries: 3,
		Status:     models.StatusQueued,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_ListByStatus(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	now := time.Now()

	rows := sqlmock.NewRows(actionRowColumns).
		AddRow("a1", "s1", "bill_payment", `{"biller":"ikeja"}`, now, 1, 3, "queued", "timeout")
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = ? ORDER BY created_at LIMIT ?`)).
		WithArgs("queued", 50).
		WillReturnRows(rows)

	actions, err := NewQueueRepository(db).ListByStatus(context.Background(), models.StatusQueued, 50)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionBillPayment, actions[0].Type)
	assert.Equal(t, 1, actions[0].RetryCount)
	assert.Equal(t, "timeout", actions[0].LastError)
	assert.JSONEq(t, `{"biller":"ikeja"}`, string(actions[0].Data))
}

func TestQueueRepository_Claim(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"claimed", 1, true},
		{"lost race", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t, database.NewSQLiteDialect())
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE queued_actions SET status = ? WHERE id = ? AND status = ?`)).
				WithArgs("processing", "a1", "queued").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := NewQueueRepository(db).Claim(context.Background(), "a1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestQueueRepository_UpdateStateMissing(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE queued_actions SET status = ?, retry_count = ?, last_error = ? WHERE id = ?`)).
		WithArgs("failed", 3, "boom", "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewQueueRepository(db).UpdateState(context.Background(), &models.QueuedAction{
		ID: "gone", Status: models.StatusFailed, RetryCount: 3, LastError: "boom",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestQueueRepository_DeleteFinished(t *testing.T) {
	db, mock := newMockDB(t, database.NewSQLiteDialect())
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM queued_actions WHERE session_id = ? AND status IN (?, ?)`)).
		WithArgs("s1", "completed", "failed").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewQueueRepository(db).DeleteFinished(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
