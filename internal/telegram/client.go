// Package telegram speaks the Bot API: an outbound Client for messages and an
// inbound Connector that long-polls getUpdates.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fieldops/concierge/internal/gateway"
)

// Client is the outbound half of the Bot API. It is safe for concurrent use.
type Client struct {
	token      string
	apiBase    string
	httpClient *http.Client
}

func NewClient(token, apiBase string, timeout time.Duration) *Client {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = "https://api.telegram.org"
	}
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &Client{
		token:   strings.TrimSpace(token),
		apiBase: strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether a bot token is configured.
func (c *Client) Enabled() bool {
	return c.token != ""
}

// SendText sends a plain message to one chat.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, nil)
}

// SendReply sends a message with an optional inline keyboard.
func (c *Client) SendReply(ctx context.Context, chatID int64, reply gateway.Reply) error {
	body := map[string]any{
		"chat_id": chatID,
		"text":    reply.Text,
	}
	if markup := inlineKeyboard(reply.Keyboard); markup != nil {
		body["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", body, nil)
}

// EditMessageText replaces the text of a previously sent message, dropping
// its inline keyboard.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

// AnswerCallback acknowledges a button press so the client stops showing a
// progress spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	}, nil)
}

// BotUsername fetches the bot's own username via getMe.
func (c *Client) BotUsername(ctx context.Context) (string, error) {
	var result struct {
		Username string `json:"username"`
	}
	if err := c.call(ctx, "getMe", nil, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Username), nil
}

// RegisterCommands publishes the public command menu via setMyCommands.
func (c *Client) RegisterCommands(ctx context.Context, commands []gateway.SlashCommand) error {
	entries := make([]map[string]string, 0, len(commands))
	for _, command := range commands {
		entries = append(entries, map[string]string{
			"command":     command.Name,
			"description": command.Description,
		})
	}
	return c.call(ctx, "setMyCommands", map[string]any{"commands": entries}, nil)
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]Update, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d&offset=%d", c.apiBase, c.token, timeoutSeconds, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var payload struct {
		OK          bool     `json:"ok"`
		Description string   `json:"description"`
		Result      []Update `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode getUpdates: %w", err)
	}
	if !payload.OK {
		return nil, apiError("getUpdates", payload.Description)
	}
	return payload.Result, nil
}

func (c *Client) call(ctx context.Context, method string, body any, result any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	if !envelope.OK {
		return apiError(method, envelope.Description)
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func apiError(method, description string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("telegram %s failed", method)
	}
	return fmt.Errorf("telegram %s failed: %s", method, description)
}

func inlineKeyboard(rows [][]gateway.Button) map[string]any {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]map[string]string, 0, len(rows))
	for _, row := range rows {
		buttons := make([]map[string]string, 0, len(row))
		for _, button := range row {
			entry := map[string]string{"text": button.Label}
			if button.Callback != "" {
				entry["callback_data"] = button.Callback
			} else {
				entry["url"] = button.URL
			}
			buttons = append(buttons, entry)
		}
		keyboard = append(keyboard, buttons)
	}
	return map[string]any{"inline_keyboard": keyboard}
}

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      User   `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
