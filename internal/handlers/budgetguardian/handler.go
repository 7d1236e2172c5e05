// internal/handlers/budgetguardian/handler.go
package budgetguardian

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"finassist/internal/common/alert"
	"finassist/internal/common/bedrock"
	apperrors "finassist/internal/common/errors"
	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
	"finassist/internal/memory"
	"finassist/internal/models"
)

const ServiceName = "budget_guardian"

var (
	ErrMissingInput        = errors.New("MISSING_INPUT")
	ErrTransactionsFailed  = errors.New("TRANSACTION_FETCH_FAILED")
	ErrAlertGenerationFail = errors.New("ALERT_GENERATION_FAILED")
)

const recentTransactionsQuery = `
	SELECT amount, transaction_type, category, transaction_date
	FROM transactions
	WHERE transaction_date >= $1 AND transaction_date <= $2`

const alertPrompt = `You are Budget Guardian, an agent that helps users stay within their spending limits.

Here is the recent memory of the conversation and events:
%s

User's spending summary:
- Total spent today: %.2f
- Total earned today: %.2f
- Net balance: %.2f

Now the user says: "%s"

Based on past context and current data, respond naturally with a short alert or insight.
Mention patterns if noticed (e.g., overspending, improvement, consistency).`

type Handler struct {
	config    *Config
	db        *sql.DB
	completer bedrock.Completer
	memory    memory.Store
	publisher alert.Publisher
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(config *Config, db *sql.DB, completer bedrock.Completer, store memory.Store, publisher alert.Publisher, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		completer: completer,
		memory:    store,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"service": ServiceName}),
		now:       time.Now,
	}
}

func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil || input.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No input message"})
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
	case errors.Is(err, ErrTransactionsFailed):
		return apperrors.New(apperrors.ErrCodeQueryExecutionFailed, "Transaction fetch failed", true).
			WithDetails(err.Error())
	default:
		return apperrors.New(apperrors.ErrCodeCompletionFailed, "Budget insight generation failed", true).
			WithDetails(err.Error())
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Message == "" {
		return nil, ErrMissingInput
	}

	userID := input.UserID
	if userID == "" {
		userID = h.config.DefaultUserID
	}

	exchanges, err := h.memory.Load(ctx, userID)
	if err != nil {
		h.logger.WithError(err).Warn("memory load failed, continuing without context", map[string]interface{}{
			"userId": userID,
		})
		exchanges = nil
	}

	txns, err := h.recentTransactions(ctx)
	if err != nil {
		return nil, err
	}
	summary := summarize(txns)

	prompt := fmt.Sprintf(alertPrompt,
		memory.ContextWindow(exchanges, h.config.ContextWindow),
		summary.Spent, summary.Earned, summary.NetBalance,
		input.Message,
	)

	reply, err := h.completer.Complete(ctx, prompt, bedrock.Options{
		MaxTokens:   300,
		Temperature: 0.4,
	})
	if err != nil {
		metrics.CompletionCalls.WithLabelValues("budget_guardian", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrAlertGenerationFail, err)
	}
	metrics.CompletionCalls.WithLabelValues("budget_guardian", "ok").Inc()

	if err := h.memory.Append(ctx, userID, models.Exchange{
		Query:     input.Message,
		Response:  reply,
		Timestamp: h.now().UTC(),
	}); err != nil {
		h.logger.WithError(err).Warn("memory append failed", map[string]interface{}{
			"userId": userID,
		})
	}

	h.maybePushAlert(ctx, userID, summary)

	return &Output{Agent: ServiceName, Response: reply}, nil
}

func (h *Handler) recentTransactions(ctx context.Context) ([]transaction, error) {
	end := h.now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -h.config.WindowDays)

	rows, err := h.db.QueryContext(ctx, strings.TrimSpace(recentTransactionsQuery), start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionsFailed, err)
	}
	defer rows.Close()

	var txns []transaction
	for rows.Next() {
		var t transaction
		var amount []byte
		var date time.Time
		if err := rows.Scan(&amount, &t.Type, &t.Category, &date); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransactionsFailed, err)
		}
		fmt.Sscanf(string(amount), "%f", &t.Amount)
		t.Date = date.Format("2006-01-02")
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionsFailed, err)
	}
	return txns, nil
}

func summarize(txns []transaction) SpendingSummary {
	var spent, earned float64
	for _, t := range txns {
		switch t.Type {
		case "debit":
			spent += t.Amount
		case "credit":
			earned += t.Amount
		}
	}
	return SpendingSummary{
		Spent:      round2(spent),
		Earned:     round2(earned),
		NetBalance: round2(earned - spent),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// maybePushAlert is best-effort: a failed push never fails the request.
func (h *Handler) maybePushAlert(ctx context.Context, userID string, summary SpendingSummary) {
	if !h.config.AlertsEnabled || h.publisher == nil || summary.Spent <= h.config.DailyLimit {
		return
	}

	msg := fmt.Sprintf("User %s spent %.2f today, over the configured limit of %.2f.", userID, summary.Spent, h.config.DailyLimit)
	if err := h.publisher.Publish(ctx, "Budget limit exceeded", msg); err != nil {
		h.logger.WithError(err).Error("overspend alert publish failed", map[string]interface{}{
			"userId": userID,
		})
	}
}
