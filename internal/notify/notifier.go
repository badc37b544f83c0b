// Package notify delivers the run's outcome message to an operator channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/tickrenew/internal/config"
	"github.com/MrSnakeDoc/tickrenew/internal/logger"
	"github.com/MrSnakeDoc/tickrenew/internal/utils"
)

// Notifier delivers a message on a best-effort basis. It never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// New returns a Telegram notifier, or a no-op one when either identifier is unset.
func New(cfg *config.Config, log logger.Logger) Notifier {
	if !cfg.NotificationsEnabled() {
		log.Info("telegram not configured, notifications disabled")
		return Nop{}
	}
	return NewTelegram(TelegramOptions{
		APIURL:    cfg.TelegramAPIURL,
		Token:     cfg.TelegramToken,
		ChatID:    cfg.TelegramChatID,
		Timeout:   cfg.NotifyTimeout,
		UserAgent: cfg.NotifyUserAgent,
	}, log)
}

// Nop discards messages.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

// TelegramOptions configures the Telegram Bot API client.
type TelegramOptions struct {
	APIURL    string        // ex: https://api.telegram.org
	Token     string        // bot token
	ChatID    string        // destination chat
	Timeout   time.Duration // per-call HTTP timeout (ex: 10s)
	UserAgent string
}

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	opts   TelegramOptions
	client *http.Client
	logger logger.Logger
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(opts TelegramOptions, log logger.Logger) *Telegram {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Telegram{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: log,
	}
}

// Notify posts message once. Failures are logged at warn level and dropped.
func (t *Telegram) Notify(ctx context.Context, message string) {
	if t.opts.Token == "" || t.opts.ChatID == "" {
		return
	}
	if err := t.send(ctx, message); err != nil {
		t.logger.Warn("failed to send telegram notification",
			logger.Error(err))
		return
	}
	t.logger.Info("telegram notification sent")
}

func (t *Telegram) send(ctx context.Context, message string) error {
	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(sendMessageRequest{ChatID: t.opts.ChatID, Text: message})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// The token is part of the path; never log the URL.
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.opts.APIURL, t.opts.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.opts.UserAgent != "" {
		req.Header.Set("User-Agent", t.opts.UserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram: %w", redactToken(err, t.opts.Token))
	}
	defer utils.Close(resp.Body)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ar apiResponse
		if json.Unmarshal(data, &ar) == nil && ar.Description != "" {
			return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, ar.Description)
		}
		return fmt.Errorf("telegram returned %d", resp.StatusCode)
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// redactToken hides the bot token that net/http embeds in url.Error messages.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}
