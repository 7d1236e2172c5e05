// internal/handlers/queryagent/handler_test.go
package queryagent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/common/bedrock"
	"finassist/internal/common/logger"
	"finassist/internal/models"
)

// scriptedCompleter plays back one response per call, in order.
type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ string, _ bedrock.Options) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("unexpected completion call")
}

// memStore is an in-memory Store for tests.
type memStore struct {
	logs map[string][]models.Exchange
}

func newMemStore() *memStore {
	return &memStore{logs: make(map[string][]models.Exchange)}
}

func (m *memStore) Load(_ context.Context, userID string) ([]models.Exchange, error) {
	return m.logs[userID], nil
}

func (m *memStore) Append(_ context.Context, userID string, e models.Exchange) error {
	m.logs[userID] = append(m.logs[userID], e)
	return nil
}

func createTestHandler(t *testing.T, completer bedrock.Completer, store *memStore) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if store == nil {
		store = newMemStore()
	}
	return NewHandler(DefaultConfig(), db, completer, store, logger.NewNoOpLogger()), mock
}

func TestExecute_FullPipeline(t *testing.T) {
	const generated = "SELECT amount, transaction_date, category FROM transactions"

	completer := &scriptedCompleter{responses: []string{
		"```sql\n" + generated + "\n```",
		"You spent 1334.50 in total, mostly on groceries.",
	}}
	store := newMemStore()
	handler, mock := createTestHandler(t, completer, store)

	rows := sqlmock.NewRows([]string{"amount", "transaction_date", "category"}).
		AddRow([]byte("1234.50"), time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), "grocery").
		AddRow([]byte("100.00"), time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC), "transport")
	mock.ExpectQuery("SELECT amount, transaction_date, category FROM transactions").WillReturnRows(rows)

	output, err := handler.Execute(context.Background(), &Input{
		Message: "How much did I spend this month?",
		UserID:  "42",
	})
	require.NoError(t, err)

	// Code fences stripped before execution.
	assert.Equal(t, generated, output.GeneratedSQL)
	assert.Equal(t, "You spent 1334.50 in total, mostly on groceries.", output.Message)

	require.Len(t, output.Data, 2)
	assert.Equal(t, 1234.5, output.Data[0]["amount"])
	assert.Equal(t, "2025-10-01", output.Data[0]["transaction_date"])
	assert.Equal(t, 100.0, output.Data[1]["amount"])

	// Successful answer lands in the per-user memory log.
	require.Len(t, store.logs["42"], 1)
	assert.Equal(t, "How much did I spend this month?", store.logs["42"][0].Query)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_MemoryContextInPrompt(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		"SELECT goal_name FROM goal",
		"Your trip goal needs 5000 more.",
	}}
	store := newMemStore()
	store.logs["42"] = []models.Exchange{
		{Query: "track my trip goal", Response: "Saved.", Timestamp: time.Now()},
	}
	handler, mock := createTestHandler(t, completer, store)

	mock.ExpectQuery("SELECT goal_name FROM goal").
		WillReturnRows(sqlmock.NewRows([]string{"goal_name"}).AddRow("Trip"))

	output, err := handler.Execute(context.Background(), &Input{Message: "how is it going?", UserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "Your trip goal needs 5000 more.", output.Message)
	assert.Len(t, store.logs["42"], 2)
}

func TestExecute_MissingInput(t *testing.T) {
	handler, _ := createTestHandler(t, &scriptedCompleter{}, nil)

	_, err := handler.Execute(context.Background(), &Input{Message: ""})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestExecute_RejectedQueryNeverExecuted(t *testing.T) {
	tests := []struct {
		name      string
		generated string
	}{
		{"mutating statement", "DELETE FROM transactions"},
		{"unknown relation", "SELECT * FROM accounts"},
		{"stacked statements", "SELECT 1; DROP TABLE goal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &scriptedCompleter{responses: []string{tt.generated}}
			handler, mock := createTestHandler(t, completer, nil)
			// No query expectation registered: execution must not happen.

			output, err := handler.Execute(context.Background(), &Input{Message: "anything", UserID: "42"})
			assert.ErrorIs(t, err, ErrQueryRejected)
			require.NotNil(t, output)
			assert.Equal(t, tt.generated, output.GeneratedSQL)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestExecute_GenerationFailure(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{errors.New("model down")}}
	handler, _ := createTestHandler(t, completer, nil)

	_, err := handler.Execute(context.Background(), &Input{Message: "question"})
	assert.ErrorIs(t, err, ErrQueryGenerationFailed)
}

func TestExecute_ExecutionFailureCarriesSQL(t *testing.T) {
	const generated = "SELECT nonexistent FROM transactions"
	completer := &scriptedCompleter{responses: []string{generated}}
	handler, mock := createTestHandler(t, completer, nil)

	mock.ExpectQuery("SELECT nonexistent FROM transactions").
		WillReturnError(errors.New(`column "nonexistent" does not exist`))

	output, err := handler.Execute(context.Background(), &Input{Message: "question"})
	assert.ErrorIs(t, err, ErrQueryExecutionFailed)
	require.NotNil(t, output)
	assert.Equal(t, generated, output.GeneratedSQL)
}

func TestExecute_SynthesisFailureCarriesData(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{"SELECT amount FROM transactions", ""},
		errs:      []error{nil, errors.New("model down")},
	}
	handler, mock := createTestHandler(t, completer, nil)

	mock.ExpectQuery("SELECT amount FROM transactions").
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow([]byte("5.00")))

	output, err := handler.Execute(context.Background(), &Input{Message: "question"})
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	require.NotNil(t, output)
	require.Len(t, output.Data, 1)
	assert.Equal(t, 5.0, output.Data[0]["amount"])
}
