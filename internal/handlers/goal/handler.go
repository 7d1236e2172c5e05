// internal/handlers/goal/handler.go
package goal

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

const ServiceName = "goal_extractor"

var (
	ErrMissingInput     = errors.New("MISSING_INPUT")
	ErrExtractionFailed = errors.New("EXTRACTION_FAILED")
	ErrInvalidJSON      = errors.New("EXTRACTION_INVALID_JSON")
	ErrInsertFailed     = errors.New("DATABASE_INSERT_FAILED")
)

const extractionPrompt = `You are an intelligent goal analyzer.
Your task is to extract structured financial goal details from the user's message.
Current date=%s
Return a valid JSON object with the following keys:
- goal_name: short title of the goal
- target_amount: numeric value (no currency symbols)
- target_date: in YYYY-MM-DD format if a time period or date is mentioned, else null
- category: classify the goal as one of ["savings", "investment", "loan_repayment", "education", "travel", "health", "emergency", "other"]
if target_date is provided as 1 year from now calculate it using current date.

If no date or timespan is provided by default set it to 1 year or calculate from statement if it says i want to save 30000 for my trip and monthly i will save 5000 so it will take 6 months.
Example Input: "I want to save 50,000 rupees for a vacation by March 2026"
Example Output:
{
  "goal_name": "Vacation Savings",
  "target_amount": 50000,
  "target_date": "2026-03-01",
  "category": "travel"
}

Now, analyze this message:
%s`

const insertGoal = `
	INSERT INTO goal (goal_name, target_amount, target_date, category, raw_message)
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
		return apperrors.New(apperrors.ErrCodeDatabaseInsertFailed, "Failed to store goal", true).
			WithDetails(err.Error())
	default:
		return apperrors.New(apperrors.ErrCodeExtractionFailed, "Goal extraction failed", true).
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

	// A null target date falls back to one year out, matching the prompt's
	// own default guidance.
	var targetDate sql.NullString
	if record.TargetDate != nil {
		targetDate = sql.NullString{String: *record.TargetDate, Valid: true}
	} else {
		fallback := h.now().UTC().AddDate(1, 0, 0).Format("2006-01-02")
		targetDate = sql.NullString{String: fallback, Valid: true}
		record.TargetDate = &fallback
	}

	if _, err := h.db.ExecContext(ctx, strings.TrimSpace(insertGoal),
		record.GoalName, record.TargetAmount, targetDate, record.Category, input.Message,
	); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	h.logger.Info("goal stored", map[string]interface{}{
		"goalName": record.GoalName,
		"category": record.Category,
	})

	return &Output{Message: "Goal parsed and stored successfully", Data: *record}, nil
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
