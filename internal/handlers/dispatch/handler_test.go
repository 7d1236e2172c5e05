// internal/handlers/dispatch/handler_test.go
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/common/logger"
	"finassist/internal/delegate"
	"finassist/internal/models"
)

type fakeClassifier struct {
	intent models.Intent
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) models.Intent {
	f.calls++
	return f.intent
}

type fakeInvoker struct {
	raw         []byte
	err         error
	calls       int
	lastService string
	lastPayload delegate.Payload
}

func (f *fakeInvoker) Invoke(_ context.Context, service string, payload delegate.Payload) ([]byte, error) {
	f.calls++
	f.lastService = service
	f.lastPayload = payload
	return f.raw, f.err
}

type fakeAdvisor struct {
	answer string
	err    error
	calls  int
}

func (f *fakeAdvisor) Advise(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func performRequest(t *testing.T, handler *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook/telegram", handler.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func updateJSON(chatID int64, text string) string {
	return `{"update_id": 1, "message": {"message_id": 10, "chat": {"id": ` +
		jsonInt(chatID) + `}, "text": ` + jsonString(text) + `}}`
}

func jsonInt(v int64) string { b, _ := json.Marshal(v); return string(b) }

func jsonString(v string) string { b, _ := json.Marshal(v); return string(b) }

func decodeReply(t *testing.T, w *httptest.ResponseRecorder) TelegramReply {
	t.Helper()
	var reply TelegramReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	return reply
}

func TestHandle_GreetingShortCircuits(t *testing.T) {
	classifier := &fakeClassifier{intent: models.IntentGreeting}
	invoker := &fakeInvoker{}
	advisor := &fakeAdvisor{}
	handler := NewHandler(DefaultConfig(), classifier, invoker, advisor, logger.NewNoOpLogger())

	w := performRequest(t, handler, updateJSON(42, "hi"))

	require.Equal(t, http.StatusOK, w.Code)
	reply := decodeReply(t, w)
	assert.Equal(t, "sendMessage", reply.Method)
	assert.Equal(t, int64(42), reply.ChatID)
	assert.Equal(t, greetingReply, reply.Text)

	assert.Zero(t, invoker.calls)
	assert.Zero(t, advisor.calls)
}

func TestHandle_DelegatedIntent(t *testing.T) {
	classifier := &fakeClassifier{intent: models.IntentGoal}
	invoker := &fakeInvoker{raw: []byte(`{"body": "{\"message\": \"Goal saved\"}"}`)}
	handler := NewHandler(DefaultConfig(), classifier, invoker, &fakeAdvisor{}, logger.NewNoOpLogger())

	w := performRequest(t, handler, updateJSON(42, "save 5000 monthly for a bike"))

	reply := decodeReply(t, w)
	assert.Equal(t, "Goal saved", reply.Text)
	assert.Equal(t, "goal", invoker.lastService)
	assert.Equal(t, "save 5000 monthly for a bike", invoker.lastPayload.Message)
	assert.Equal(t, "42", invoker.lastPayload.UserID)
}

func TestHandle_BudgetGuardianRouting(t *testing.T) {
	classifier := &fakeClassifier{intent: models.IntentBudgetGuardian}
	invoker := &fakeInvoker{raw: []byte(`{"body": {"response": "You spent 650 today."}}`)}
	handler := NewHandler(DefaultConfig(), classifier, invoker, &fakeAdvisor{}, logger.NewNoOpLogger())

	w := performRequest(t, handler, updateJSON(7, "how much did I spend this week?"))

	reply := decodeReply(t, w)
	assert.Equal(t, "You spent 650 today.", reply.Text)
	assert.Equal(t, "budget_guardian", invoker.lastService)
}

func TestHandle_InvestmentAnsweredLocally(t *testing.T) {
	classifier := &fakeClassifier{intent: models.IntentInvestment}
	invoker := &fakeInvoker{}
	advisor := &fakeAdvisor{answer: "Consider index funds and short-term debt funds."}
	handler := NewHandler(DefaultConfig(), classifier, invoker, advisor, logger.NewNoOpLogger())

	w := performRequest(t, handler, updateJSON(42, "should I invest in ETFs?"))

	reply := decodeReply(t, w)
	assert.Equal(t, "Consider index funds and short-term debt funds.", reply.Text)
	assert.Equal(t, 1, advisor.calls)
	assert.Zero(t, invoker.calls)
}

func TestHandle_UnknownIntentAsksToRephrase(t *testing.T) {
	classifier := &fakeClassifier{intent: models.IntentUnknown}
	handler := NewHandler(DefaultConfig(), classifier, &fakeInvoker{}, &fakeAdvisor{}, logger.NewNoOpLogger())

	w := performRequest(t, handler, updateJSON(42, "flurble"))

	reply := decodeReply(t, w)
	assert.Equal(t, rephraseReply, reply.Text)
}

func TestHandle_DelegationFailureDegradesToApology(t *testing.T) {
	classifier := &fakeClassifier{intent: models.IntentQuery}
	invoker := &fakeInvoker{err: errors.New("connection refused")}
	handler := NewHandler(DefaultConfig(), classifier, invoker, &fakeAdvisor{}, logger.NewNoOpLogger())

	w := performRequest(t, handler, updateJSON(42, "what did I spend on groceries?"))

	require.Equal(t, http.StatusOK, w.Code)
	reply := decodeReply(t, w)
	assert.Equal(t, apologyReply, reply.Text)
	assert.Equal(t, int64(42), reply.ChatID)
}

func TestHandle_AdvisorFailureDegradesToApology(t *testing.T) {
	classifier := &fakeClassifier{intent: models.IntentInvestment}
	advisor := &fakeAdvisor{err: errors.New("throttled")}
	handler := NewHandler(DefaultConfig(), classifier, &fakeInvoker{}, advisor, logger.NewNoOpLogger())

	w := performRequest(t, handler, updateJSON(42, "best stocks?"))

	reply := decodeReply(t, w)
	assert.Equal(t, apologyReply, reply.Text)
}

func TestHandle_MissingTextIsNoOp(t *testing.T) {
	classifier := &fakeClassifier{}
	handler := NewHandler(DefaultConfig(), classifier, &fakeInvoker{}, &fakeAdvisor{}, logger.NewNoOpLogger())

	w := performRequest(t, handler, `{"update_id": 1, "message": {"message_id": 10, "chat": {"id": 42}}}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), noMessageNote)
	assert.Zero(t, classifier.calls)
}

func TestHandle_MalformedBody(t *testing.T) {
	handler := NewHandler(DefaultConfig(), &fakeClassifier{}, &fakeInvoker{}, &fakeAdvisor{}, logger.NewNoOpLogger())

	w := performRequest(t, handler, `{not json`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), noChatReply)
}

func TestHandle_CollaboratorGarbageYieldsDiagnostic(t *testing.T) {
	classifier := &fakeClassifier{intent: models.IntentTransaction}
	invoker := &fakeInvoker{raw: []byte(`{"weird": true}`)}
	handler := NewHandler(DefaultConfig(), classifier, invoker, &fakeAdvisor{}, logger.NewNoOpLogger())

	w := performRequest(t, handler, updateJSON(42, "spent 100 on lunch"))

	reply := decodeReply(t, w)
	assert.Equal(t, delegate.DiagnosticReply, reply.Text)
}
