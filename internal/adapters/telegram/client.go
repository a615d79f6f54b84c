package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the part of *tgbotapi.BotAPI the shell uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Client sends messages and fetches files through the Bot API. It
// implements ports.Notifier and attachments.Fetcher.
type Client struct {
	api  API
	http *http.Client
}

// NewClient wraps api.
func NewClient(api API) *Client {
	return &Client{api: api, http: http.DefaultClient}
}

// Send delivers text to chat, then the attachment as a document if given.
func (c *Client) Send(ctx context.Context, chat int64, text, attachmentPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chat, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if attachmentPath == "" {
		return nil
	}
	if _, err := c.api.Send(tgbotapi.NewDocument(chat, tgbotapi.FilePath(attachmentPath))); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// Prompt shows p with its options as a one-button-per-row reply keyboard.
func (c *Client) Prompt(chat int64, p domain.Prompt) error {
	msg := tgbotapi.NewMessage(chat, p.Text)
	msg.ReplyMarkup = keyboard(p.Options)
	_, err := c.api.Send(msg)
	return err
}

// Fetch downloads the file behind a Telegram file id.
func (c *Client) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func keyboard(options []string) any {
	if len(options) == 0 {
		return tgbotapi.NewRemoveKeyboard(true)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
	for _, o := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(o)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}
