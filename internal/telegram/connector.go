package telegram

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fieldops/concierge/internal/gateway"
	"github.com/fieldops/concierge/internal/identity"
)

type CommandGateway interface {
	HandleMessage(ctx context.Context, input gateway.MessageInput) gateway.MessageOutput
	HandleCallback(ctx context.Context, input gateway.CallbackInput) gateway.CallbackOutput
}

// Connector drives the inbound side: it long-polls getUpdates and hands each
// update to the gateway on its own goroutine, so a slow handler (an admin
// broadcast, typically) never stalls other chats.
type Connector struct {
	client      *Client
	pollSeconds int
	gateway     CommandGateway
	logger      *slog.Logger
	offset      int64
	inflight    sync.WaitGroup
}

func NewConnector(client *Client, pollSeconds int, commandGateway CommandGateway, logger *slog.Logger) *Connector {
	if pollSeconds < 1 {
		pollSeconds = 25
	}
	return &Connector{
		client:      client,
		pollSeconds: pollSeconds,
		gateway:     commandGateway,
		logger:      logger,
	}
}

func (c *Connector) Name() string {
	return "telegram"
}

func (c *Connector) Start(ctx context.Context) error {
	if !c.client.Enabled() {
		c.logger.Info("connector disabled, token missing")
		<-ctx.Done()
		return nil
	}

	c.logger.Info("connector started")
	if username, err := c.client.BotUsername(ctx); err == nil && username != "" {
		c.logger.Info("bot identity loaded", "username", username)
	} else if err != nil {
		c.logger.Warn("bot username lookup failed", "error", err)
	}
	if err := c.client.RegisterCommands(ctx, gateway.PublicCommands()); err != nil {
		c.logger.Warn("command registration failed", "error", err)
	}

	defer c.inflight.Wait()
	for {
		if ctx.Err() != nil {
			c.logger.Info("connector stopped")
			return nil
		}
		if err := c.pollOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("poll failed", "error", err)
			select {
			case <-ctx.Done():
				c.logger.Info("connector stopped")
				return nil
			case <-time.After(1500 * time.Millisecond):
			}
		}
	}
}

func (c *Connector) pollOnce(ctx context.Context) error {
	updates, err := c.client.GetUpdates(ctx, c.offset, c.pollSeconds)
	if err != nil {
		return err
	}
	for _, update := range updates {
		if update.UpdateID >= c.offset {
			c.offset = update.UpdateID + 1
		}
		c.inflight.Add(1)
		go func(update Update) {
			defer c.inflight.Done()
			c.handleUpdate(ctx, update)
		}(update)
	}
	return nil
}

func (c *Connector) handleUpdate(ctx context.Context, update Update) {
	switch {
	case update.Message != nil:
		c.handleMessage(ctx, *update.Message)
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, *update.CallbackQuery)
	}
}

func (c *Connector) handleMessage(ctx context.Context, message Message) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	output := c.gateway.HandleMessage(ctx, gateway.MessageInput{
		Identity: identity.ChatIdentity{
			ChatID: message.Chat.ID,
			Handle: message.From.Username,
		},
		Text: text,
	})
	if !output.Handled {
		return
	}
	for _, reply := range output.Replies {
		if err := c.client.SendReply(ctx, message.Chat.ID, reply); err != nil {
			c.logger.Error("send reply failed", "error", err, "chat_id", message.Chat.ID)
			return
		}
	}
}

func (c *Connector) handleCallback(ctx context.Context, callback CallbackQuery) {
	if err := c.client.AnswerCallback(ctx, callback.ID); err != nil {
		c.logger.Warn("answer callback failed", "error", err, "callback_id", callback.ID)
	}
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	output := c.gateway.HandleCallback(ctx, gateway.CallbackInput{
		Identity: identity.ChatIdentity{
			ChatID: chatID,
			Handle: callback.From.Username,
		},
		Data: callback.Data,
	})
	if output.EditText != "" {
		if err := c.client.EditMessageText(ctx, chatID, callback.Message.MessageID, output.EditText); err != nil {
			c.logger.Error("edit message failed", "error", err, "chat_id", chatID)
		}
	}
	for _, reply := range output.Replies {
		if err := c.client.SendReply(ctx, chatID, reply); err != nil {
			c.logger.Error("send reply failed", "error", err, "chat_id", chatID)
			return
		}
	}
}
