// internal/handlers/dispatch/handler.go

// Package dispatch owns the Telegram webhook: it decodes the incoming
// update, classifies the message, routes it to a collaborator or answers
// locally, and always replies HTTP 200 so Telegram never retries.
package dispatch

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"finassist/internal/common/logger"
	"finassist/internal/common/metrics"
	"finassist/internal/common/observability"
	"finassist/internal/delegate"
	"finassist/internal/models"
)

const (
	greetingReply = "Hi 👋 How may I help you with your finances today?"
	rephraseReply = "Sorry, I couldn't understand that. Could you rephrase?"
	apologyReply  = "Sorry, something went wrong on my end."
	noChatReply   = "Could not determine chat_id to respond."
	noMessageNote = "No message or chat_id found"
)

// IntentClassifier is the routing decision; the concrete classifier never
// returns an error, it degrades to the unknown intent instead.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) models.Intent
}

type Handler struct {
	config     *Config
	classifier IntentClassifier
	invoker    delegate.Invoker
	advisor    Advisor
	obs        *observability.Observability
	logger     logger.Logger
}

func NewHandler(config *Config, classifier IntentClassifier, invoker delegate.Invoker, advisor Advisor, log logger.Logger) *Handler {
	return &Handler{
		config:     config,
		classifier: classifier,
		invoker:    invoker,
		advisor:    advisor,
		logger:     log.WithFields(map[string]interface{}{"service": "dispatcher"}),
	}
}

// WithObservability attaches span and meter instrumentation.
func (h *Handler) WithObservability(obs *observability.Observability) *Handler {
	h.obs = obs
	return h
}

func (h *Handler) Handle(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		// Malformed update: nothing to recover a chat id from.
		c.JSON(http.StatusOK, NoChatReply{Text: noChatReply})
		return
	}

	text, chatID := messageParts(&update)
	if text == "" || chatID == 0 {
		c.JSON(http.StatusOK, NoChatReply{Text: noMessageNote})
		return
	}

	requestID := uuid.New().String()
	log := h.logger.WithFields(map[string]interface{}{
		"requestId": requestID,
		"chatId":    chatID,
	})

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Timeout)
	defer cancel()

	if h.obs != nil {
		var span trace.Span
		ctx, span = h.obs.StartSpan(ctx, "dispatch.message")
		defer span.End()
	}

	start := time.Now()
	intent := h.classifier.Classify(ctx, text)
	metrics.RequestsTotal.WithLabelValues(string(intent)).Inc()

	log.Info("message classified", map[string]interface{}{"intent": string(intent)})

	reply := h.route(ctx, log, intent, text, chatID)

	metrics.RequestDuration.WithLabelValues(string(intent)).Observe(time.Since(start).Seconds())
	if h.obs != nil {
		h.obs.RecordMessageProcessed(ctx, string(intent))
		h.obs.RecordMessageDuration(ctx, time.Since(start), string(intent))
	}

	c.JSON(http.StatusOK, TelegramReply{
		Method: "sendMessage",
		ChatID: chatID,
		Text:   reply,
	})
}

// route resolves the reply text for a classified message. Failures in
// collaborators or the advisor degrade to an apology, never to a non-200.
func (h *Handler) route(ctx context.Context, log logger.Logger, intent models.Intent, text string, chatID int64) string {
	switch {
	case intent == models.IntentGreeting:
		return greetingReply

	case intent == models.IntentInvestment:
		answer, err := h.advisor.Advise(ctx, text)
		if err != nil {
			log.WithError(err).Error("investment advice failed", map[string]interface{}{})
			return apologyReply
		}
		return answer

	case intent.Delegated():
		raw, err := h.invoker.Invoke(ctx, intent.ServiceName(), delegate.Payload{
			Message: text,
			UserID:  strconv.FormatInt(chatID, 10),
		})
		if err != nil {
			log.WithError(err).Error("delegation failed", map[string]interface{}{
				"service": intent.ServiceName(),
			})
			return apologyReply
		}
		return delegate.Normalize(raw).Text

	default:
		return rephraseReply
	}
}

func messageParts(update *tgbotapi.Update) (string, int64) {
	if update.Message == nil || update.Message.Chat == nil {
		return "", 0
	}
	return update.Message.Text, update.Message.Chat.ID
}
