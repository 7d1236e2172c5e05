// internal/handlers/transaction/handler_test.go
package transaction

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
	completer := &fakeCompleter{answer: "```json\n{\"amount\": 450.75, \"transaction_type\": \"debit\", \"transaction_date\": \"2025-10-20\", \"category\": \"grocery\"}\n```"}
	handler, mock := createTestHandler(t, completer)

	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(450.75, "debit", "2025-10-20", "grocery", "spent 450.75 on groceries today").
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := handler.Execute(context.Background(), &Input{Message: "spent 450.75 on groceries today"})
	require.NoError(t, err)

	assert.Equal(t, "Transaction parsed and stored successfully", output.Message)
	assert.Equal(t, 450.75, output.Data.Amount)
	assert.Equal(t, "grocery", output.Data.Category)

	// Prompt carries the pinned current date for relative-date resolution.
	assert.Contains(t, completer.lastPrompt, "Current date = 2025-10-20")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_BareJSONWithoutFences(t *testing.T) {
	completer := &fakeCompleter{answer: `{"amount": 1000, "transaction_type": "credit", "transaction_date": "2025-10-01", "category": "salary"}`}
	handler, mock := createTestHandler(t, completer)

	mock.ExpectExec(`INSERT INTO transactions`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	output, err := handler.Execute(context.Background(), &Input{Message: "salary credited"})
	require.NoError(t, err)
	assert.Equal(t, "credit", output.Data.TransactionType)
}

func TestExecute_MissingInput(t *testing.T) {
	handler, _ := createTestHandler(t, &fakeCompleter{})

	_, err := handler.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestExecute_CompletionFailure(t *testing.T) {
	handler, _ := createTestHandler(t, &fakeCompleter{err: errors.New("throttled")})

	_, err := handler.Execute(context.Background(), &Input{Message: "spent 100"})
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExecute_InvalidModelOutput(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"not json", "I could not parse that message."},
		{"wrong type", `{"amount": "lots", "transaction_type": "debit", "transaction_date": "2025-10-20", "category": "other"}`},
		{"bad enum", `{"amount": 10, "transaction_type": "withdrawal", "transaction_date": "2025-10-20", "category": "other"}`},
		{"bad date", `{"amount": 10, "transaction_type": "debit", "transaction_date": "yesterday", "category": "other"}`},
		{"missing key", `{"amount": 10, "transaction_type": "debit", "category": "other"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mock := createTestHandler(t, &fakeCompleter{answer: tt.answer})

			_, err := handler.Execute(context.Background(), &Input{Message: "spent 10"})
			assert.ErrorIs(t, err, ErrInvalidJSON)

			// Nothing reached the database.
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestExecute_InsertFailure(t *testing.T) {
	completer := &fakeCompleter{answer: `{"amount": 10, "transaction_type": "debit", "transaction_date": "2025-10-20", "category": "other"}`}
	handler, mock := createTestHandler(t, completer)

	mock.ExpectExec(`INSERT INTO transactions`).
		WillReturnError(errors.New("connection refused"))

	_, err := handler.Execute(context.Background(), &Input{Message: "spent 10"})
	assert.ErrorIs(t, err, ErrInsertFailed)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
