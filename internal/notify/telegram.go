// Package notify holds the concrete alert transports: Telegram, SMTP email
// and an AMQP publisher.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/httputil"
)

const DefaultTelegramAPI = "https://api.telegram.org"

// Telegram sends messages through the Bot API. It implements alert.Messenger.
type Telegram struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewTelegram(token string, client *http.Client) *Telegram {
	if client == nil {
		client = httputil.NewHTTPClient(nil, 0)
	}
	return &Telegram{token: token, baseURL: DefaultTelegramAPI, client: client}
}

// WithBaseURL points the client at another Bot API server.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	const op = "notify.Telegram.Send"

	if t.token == "" || chatID == "" {
		return fmt.Errorf("%s: %w", op, errors.New("token and chat id are required"))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	var resp botResponse
	err := httputil.PostJSON(ctx, t.client, url, sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}, &resp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.OK {
		return fmt.Errorf("%s: telegram refused message: %s", op, resp.Description)
	}
	return nil
}
