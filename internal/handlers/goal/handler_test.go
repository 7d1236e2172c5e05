// internal/handlers/goal/handler_test.go
package goal

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/common/bedrock"
	"finassist/internal/common/logger"
)

type fakeCompleter struct {
	answer     string
	err        error
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ bedrock.Options) (string, error) {
	f.lastPrompt = prompt
	return f.answer, f.err
}

func createTestHandler(t *testing.T, completer *fakeCompleter) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(DefaultConfig(), db, completer, logger.NewNoOpLogger())
	h.now = func() time.Time { return time.Date(2025, 10, 20, 15, 0, 0, 0, time.UTC) }
	return h, mock
}

func TestExecute_ParseAndStore(t *testing.T) {
	completer := &fakeCompleter{answer: "```json\n{\"goal_name\": \"Vacation Savings\", \"target_amount\": 50000, \"target_date\": \"2026-03-01\", \"category\": \"travel\"}\n```"}
	handler, mock := createTestHandler(t, completer)

	mock.ExpectExec(`INSERT INTO goal`).
		WithArgs("Vacation Savings", 50000.0, sql.NullString{String: "2026-03-01", Valid: true}, "travel", "save 50000 for a vacation by March 2026").
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := handler.Execute(context.Background(), &Input{Message: "save 50000 for a vacation by March 2026"})
	require.NoError(t, err)

	assert.Equal(t, "Goal parsed and stored successfully", output.Message)
	assert.Equal(t, "Vacation Savings", output.Data.GoalName)
	require.NotNil(t, output.Data.TargetDate)
	assert.Equal(t, "2026-03-01", *output.Data.TargetDate)

	assert.Contains(t, completer.lastPrompt, "Current date=2025-10-20")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_NullTargetDateDefaultsToOneYear(t *testing.T) {
	completer := &fakeCompleter{answer: `{"goal_name": "Emergency Fund", "target_amount": 10000, "target_date": null, "category": "emergency"}`}
	handler, mock := createTestHandler(t, completer)

	mock.ExpectExec(`INSERT INTO goal`).
		WithArgs("Emergency Fund", 10000.0, sql.NullString{String: "2026-10-20", Valid: true}, "emergency", "build an emergency fund of 10000").
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := handler.Execute(context.Background(), &Input{Message: "build an emergency fund of 10000"})
	require.NoError(t, err)

	require.NotNil(t, output.Data.TargetDate)
	assert.Equal(t, "2026-10-20", *output.Data.TargetDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_MissingInput(t *testing.T) {
	handler, _ := createTestHandler(t, &fakeCompleter{})

	_, err := handler.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestExecute_CompletionFailure(t *testing.T) {
	handler, _ := createTestHandler(t, &fakeCompleter{err: errors.New("throttled")})

	_, err := handler.Execute(context.Background(), &Input{Message: "save 1000"})
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExecute_InvalidModelOutput(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"not json", "Sorry, I cannot help with that."},
		{"wrong amount type", `{"goal_name": "Trip", "target_amount": "a lot", "target_date": null, "category": "travel"}`},
		{"bad date format", `{"goal_name": "Trip", "target_amount": 1000, "target_date": "next year", "category": "travel"}`},
		{"missing name", `{"target_amount": 1000, "target_date": null, "category": "travel"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := createTestHandler(t, &fakeCompleter{answer: tt.answer})

			_, err := handler.Execute(context.Background(), &Input{Message: "save 1000"})
			assert.ErrorIs(t, err, ErrInvalidJSON)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestExecute_InsertFailure(t *testing.T) {
	completer := &fakeCompleter{answer: `{"goal_name": "Trip", "target_amount": 1000, "target_date": "2026-01-01", "category": "travel"}`}
	handler, mock := createTestHandler(t, completer)

	mock.ExpectExec(`INSERT INTO goal`).
		WillReturnError(errors.New("connection refused"))

	_, err := handler.Execute(context.Background(), &Input{Message: "save 1000"})
	assert.ErrorIs(t, err, ErrInsertFailed)
}
