// internal/handlers/queryagent/handler.go
package queryagent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"finassist/internal/common/bedrock"
	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
	"finassist/internal/memory"
	"finassist/internal/models"
)

const ServiceName = "query"

var (
	ErrMissingInput          = errors.New("MISSING_INPUT")
	ErrQueryGenerationFailed = errors.New("QUERY_GENERATION_FAILED")
	ErrQueryRejected         = errors.New("QUERY_REJECTED")
	ErrQueryTimeout          = errors.New("QUERY_TIMEOUT")
	ErrQueryExecutionFailed  = errors.New("QUERY_EXECUTION_FAILED")
	ErrSynthesisFailed       = errors.New("SYNTHESIS_FAILED")
)

const narrationPrompt = `You are a friendly financial assistant with short-term memory.
Use the previous conversation and new data to answer naturally.

User Context: %s
User Question: "%s"
Database Results: %s
`

type Handler struct {
	config    *Config
	db        *sql.DB
	completer bedrock.Completer
	memory    memory.Store
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, completer bedrock.Completer, store memory.Store, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		completer: completer,
		memory:    store,
		logger:    log.WithFields(map[string]interface{}{"service": ServiceName}),
	}
}

// Handle is the HTTP surface for the dispatcher's delegation call.
func (h *Handler) Handle(c *gin.Context) {
	var input Input
	if err := c.ShouldBindJSON(&input); err != nil || input.Message == "" {
		c.JSON(http.StatusBadRequest, ErrorBody{Error: "No query found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		body := ErrorBody{Error: err.Error()}
		if output != nil {
			body.AttemptedSQL = output.GeneratedSQL
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	c.JSON(http.StatusOK, output)
}

// Execute runs the full pipeline: memory load, translate, validate,
// execute, serialize, narrate, memory append. On failure the returned
// Output still carries the generated SQL when one exists, for diagnosis.
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
		// Memory is best-effort context; answer without it.
		h.logger.WithError(err).Warn("memory load failed, continuing without context", map[string]interface{}{
			"userId": userID,
		})
		exchanges = nil
	}
	memoryContext := memory.ContextWindow(exchanges, h.config.ContextWindow)

	query, err := h.translate(ctx, input.Message, memoryContext)
	if err != nil {
		return nil, err
	}

	if err := validateQuery(query); err != nil {
		metrics.QueriesRejected.Inc()
		h.logger.Warn("generated query rejected", map[string]interface{}{
			"query":  query,
			"reason": err.Error(),
		})
		return &Output{GeneratedSQL: query}, fmt.Errorf("%w: %v", ErrQueryRejected, err)
	}

	rows, err := executeQuery(ctx, h.db, query)
	if err != nil {
		return &Output{GeneratedSQL: query}, err
	}

	data := serializeRows(rows)

	answer, err := h.synthesize(ctx, input.Message, data, memoryContext)
	if err != nil {
		return &Output{GeneratedSQL: query, Data: data}, err
	}

	if err := h.memory.Append(ctx, userID, models.Exchange{
		Query:     input.Message,
		Response:  answer,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		h.logger.WithError(err).Warn("memory append failed", map[string]interface{}{
			"userId": userID,
		})
	}

	return &Output{
		Message:      answer,
		GeneratedSQL: query,
		Data:         data,
	}, nil
}

func (h *Handler) synthesize(ctx context.Context, question string, data []map[string]interface{}, memoryContext string) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	answer, err := h.completer.Complete(ctx, fmt.Sprintf(narrationPrompt, memoryContext, question, encoded), bedrock.Options{
		MaxTokens:   250,
		Temperature: 0.5,
	})
	if err != nil {
		metrics.CompletionCalls.WithLabelValues("synthesizer", "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	metrics.CompletionCalls.WithLabelValues("synthesizer", "ok").Inc()

	return answer, nil
}
