// internal/handlers/transaction/handler.go
package transaction

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"finassist/internal/common/bedrock"
	apperrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
)

const ServiceName = "transaction_extractor"

var (
	ErrMissingInput     = errors.New("MISSING_INPUT")
	ErrExtractionFailed = errors.New("EXTRACTION_FAILED")
	ErrInvalidJSON      = errors.New("EXTRACTION_INVALID_JSON")
	ErrInsertFailed     = errors.New("DATABASE_INSERT_FAILED")
)

const extractionPrompt = `You are an intelligent financial transaction parser.
Extract structured details from the transaction message and classify it into a category.

Return a JSON object with the following keys:
- amount: the transaction amount as a number (without currency symbols)
- transaction_type: "debit" or "credit"
- transaction_date: the date of the transaction in YYYY-MM-DD format
- category: classify the transaction as one of ["salary", "grocery", "entertainment", "utility", "restaurant", "transport", "other"]

Current date = %s
Note if transaction date is not mentioned get it as current_date. If mentioned today or yesterday or so get the date accordingly as per the logic today means current date yesterday means current date -1
Here is the transaction message:
%s`

const insertTransaction = `
	INSERT INTO transactions (amount, transaction_type, transaction_date, category, raw_message)
	VALUES ($1, $2, $3, $4, $5)`

type Handler struct {
	config    *Config
	db        *sql.DB
	completer bedrock.Completer
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(config *Config, db *sql.DB, completer bedrock.Completer, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		completer: completer,
		logger:    log.WithFields(map[string]interface{}{"service": ServiceName}),
		now:       time.Now,
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil || input.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, standardError(err))
		return
	}

	c.JSON(http.StatusOK, output)
}

func standardError(err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidJSON):
		return apperrors.NewExtractionInvalidJSONError(err.Error())
	case errors.Is(err, ErrInsertFailed):
		return apperrors.New(apperrors.ErrCodeDatabaseInsertFailed, "Failed to store transaction", true).
			WithDetails(err.Error())
	default:
		return apperrors.New(apperrors.ErrCodeExtractionFailed, "Transaction extraction failed", true).
			WithDetails(err.Error())
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Message == "" {
		return nil, ErrMissingInput
	}

	record, err := h.extract(ctx, input.Message)
	if err != nil {
		return nil, err
	}

	if _, err := h.db.ExecContext(ctx, strings.TrimSpace(insertTransaction),
		record.Amount, record.TransactionType, record.TransactionDate, record.Category, input.Message,
	); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	h.logger.Info("transaction stored", map[string]interface{}{
		"amount":   record.Amount,
		"category": record.Category,
	})

	return &Output{Message: "Transaction parsed and stored successfully", Data: *record}, nil
}

func (h *Handler) extract(ctx context.Context, message string) (*Record, error) {
	prompt := fmt.Sprintf(extractionPrompt, h.now().UTC().Format("2006-01-02"), message)

	raw, err := h.completer.Complete(ctx, prompt, bedrock.Options{
		MaxTokens:   300,
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err != nil {
		metrics.CompletionCalls.WithLabelValues(ServiceName, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	metrics.CompletionCalls.WithLabelValues(ServiceName, "ok").Inc()

	cleaned := stripFences(raw)
	if err := validateRecord(cleaned); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var record Record
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return &record, nil
}
