// Package telegram is the Telegram shell: it turns Bot API updates into
// intake and admin desk events and sends the resulting prompts back.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Doe880/telegram-feedback-bot1/internal/logging"
	"github.com/Doe880/telegram-feedback-bot1/internal/prompts"
	"github.com/Doe880/telegram-feedback-bot1/internal/sanitize"
	"github.com/Doe880/telegram-feedback-bot1/pkg/admin"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/intake"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot commands handled outside the conversation.
const (
	CommandStart  = "start"
	CommandAdmin  = "admin"
	CommandChatID = "chat_id"
)

// PollTimeout is the long-polling timeout in seconds.
const PollTimeout = 60

// Conversations drives the user-side intake flow.
type Conversations interface {
	Handle(ctx context.Context, sessionID string, ev domain.InputEvent) (*intake.Reply, error)
}

// Desk drives the administrator reply flow.
type Desk interface {
	Handle(ctx context.Context, sessionID string, ev domain.AdminEvent) (*admin.Reply, error)
	Active(ctx context.Context, sessionID string) (bool, error)
}

// Bot dispatches updates. Each chat has one user session and, for
// administrators, one desk session.
type Bot struct {
	client        *Client
	api           API
	conversations Conversations
	desk          Desk
	prompts       *prompts.Table
	logger        *slog.Logger
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets a custom structured logger for the bot.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// New creates a bot.
func New(api API, conversations Conversations, desk Desk, table *prompts.Table, opts ...Option) *Bot {
	b := &Bot{
		client:        NewClient(api),
		api:           api,
		conversations: conversations,
		desk:          desk,
		prompts:       table,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Client returns the client used for replies, for use as notifier and fetcher.
func (b *Bot) Client() *Client { return b.client }

// UserSessionID and AdminSessionID name the sessions of a chat.
func UserSessionID(chat int64) string  { return "user:" + strconv.FormatInt(chat, 10) }
func AdminSessionID(chat int64) string { return "admin:" + strconv.FormatInt(chat, 10) }

// HandleUpdate decodes a webhook body and handles it.
func (b *Bot) HandleUpdate(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("decode update: %w", err)
	}
	return b.Handle(ctx, update)
}

// Handle processes one update. Only private messages are handled.
func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return nil
	}
	chat, user := msg.Chat.ID, msg.From.ID
	logger := b.logger.With("chat_id", chat, "update_id", update.UpdateID)

	switch msg.Command() {
	case CommandChatID:
		return b.reply(chat, domain.Prompt{Text: fmt.Sprintf("Ваш chat_id: %d", chat)})
	case CommandAdmin:
		return b.toDesk(ctx, chat, domain.AdminEvent{Kind: domain.AdminOpen, UserID: user})
	case CommandStart:
		if active, _ := b.desk.Active(ctx, AdminSessionID(chat)); active {
			if _, err := b.desk.Handle(ctx, AdminSessionID(chat), domain.AdminEvent{Kind: domain.AdminCancel, UserID: user}); err != nil {
				logger.Warn("Failed to close admin desk", "err", err)
			}
		}
		return b.toIntake(ctx, chat, domain.RestartInput(user))
	}

	if msg.Text != "" {
		text, err := sanitize.Text(msg.Text, 0)
		if err != nil {
			logger.Warn("Rejected message text", "err", err)
			return b.reply(chat, domain.Prompt{Text: b.prompts.Text(prompts.MsgNotUnderstood)})
		}
		active, err := b.desk.Active(ctx, AdminSessionID(chat))
		if err != nil {
			logger.Error("Failed to check admin desk", "err", err)
		}
		if active {
			return b.toDesk(ctx, chat, domain.AdminEvent{Kind: domain.AdminText, UserID: user, Text: text})
		}
		return b.toIntake(ctx, chat, b.prompts.Classify(user, text))
	}

	if a, ok := attachmentOf(msg); ok {
		return b.toIntake(ctx, chat, domain.AttachmentInput(user, a))
	}
	// Stickers, voice notes and the like are not understood at any step.
	return b.toIntake(ctx, chat, domain.TextInput(user, ""))
}

// SetWebhook registers <baseURL>/webhook/<secret> with Telegram.
func SetWebhook(api API, baseURL, secret string) error {
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + "/webhook/" + secret)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook switches the bot back to getUpdates.
func DeleteWebhook(api API) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// Poll receives updates by long polling until ctx is done.
func (b *Bot) Poll(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.Handle(ctx, update); err != nil {
				b.logger.Error("Update failed", "update_id", update.UpdateID, "err", err)
			}
		}
	}
}

func (b *Bot) toIntake(ctx context.Context, chat int64, ev domain.InputEvent) error {
	reply, err := b.conversations.Handle(ctx, UserSessionID(chat), ev)
	if err != nil {
		_ = b.reply(chat, domain.Prompt{Text: b.prompts.Text(prompts.MsgSubmitFailed)})
		return err
	}
	if reply.Err != nil {
		b.logger.Debug("Input refused", "chat_id", chat, "state", reply.State, "err", reply.Err)
	}
	return b.reply(chat, reply.Prompt)
}

func (b *Bot) toDesk(ctx context.Context, chat int64, ev domain.AdminEvent) error {
	reply, err := b.desk.Handle(ctx, AdminSessionID(chat), ev)
	if err != nil {
		_ = b.reply(chat, domain.Prompt{Text: b.prompts.Admin(prompts.AdminLoadFailed)})
		return err
	}
	if reply.Err != nil {
		b.logger.Debug("Admin input refused", "chat_id", chat, "state", reply.State, "err", reply.Err)
	}
	return b.reply(chat, reply.Prompt)
}

func (b *Bot) reply(chat int64, p domain.Prompt) error {
	if err := b.client.Prompt(chat, p); err != nil {
		return fmt.Errorf("reply to %d: %w", chat, err)
	}
	return nil
}

// attachmentOf extracts a document or the largest photo of msg.
func attachmentOf(msg *tgbotapi.Message) (domain.Attachment, bool) {
	if d := msg.Document; d != nil {
		kind := domain.KindFromMIME(d.MimeType)
		if kind == domain.KindUnknown {
			kind = domain.KindFromFileName(d.FileName)
		}
		return domain.Attachment{Ref: d.FileID, Kind: kind, FileName: d.FileName, MIMEType: d.MimeType}, true
	}
	if len(msg.Photo) > 0 {
		largest := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.FileSize > largest.FileSize || p.Width*p.Height > largest.Width*largest.Height {
				largest = p
			}
		}
		return domain.Attachment{Ref: largest.FileID, Kind: domain.KindJPEG, MIMEType: "image/jpeg"}, true
	}
	return domain.Attachment{}, false
}
