// internal/handlers/dispatch/models.go
package dispatch

// TelegramReply is the webhook-reply form of sendMessage: Telegram executes
// the method named in the response body, so no outbound API call is needed.
type TelegramReply struct {
	Method string `json:"method"`
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// NoChatReply is returned when no chat id could be recovered from the
// update; Telegram ignores a body without a method.
type NoChatReply struct {
	Text string `json:"text"`
}
