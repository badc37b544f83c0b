package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/tickrenew/internal/config"
	"github.com/MrSnakeDoc/tickrenew/internal/logger"
)

type fakeTelegram struct {
	mu       sync.Mutex
	tokens   []string
	requests []sendMessageRequest
	status   int
}

func (f *fakeTelegram) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newFakeTelegram(t *testing.T, status int) (*fakeTelegram, *httptest.Server) {
	t.Helper()
	fake := &fakeTelegram{status: status}

	r := chi.NewRouter()
	r.Post("/bot{token}/sendMessage", func(w http.ResponseWriter, req *http.Request) {
		var body sendMessageRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fake.mu.Lock()
		fake.tokens = append(fake.tokens, chi.URLParam(req, "token"))
		fake.requests = append(fake.requests, body)
		fake.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fake.status)
		if fake.status == http.StatusOK {
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return fake, ts
}

func TestTelegramNotify(t *testing.T) {
	fake, ts := newFakeTelegram(t, http.StatusOK)

	n := NewTelegram(TelegramOptions{
		APIURL:  ts.URL,
		Token:   "123:abc",
		ChatID:  "-10042",
		Timeout: time.Second,
	}, logger.Nop())

	n.Notify(context.Background(), "✅ renewed\nServer: abc")

	require.Equal(t, 1, fake.calls())
	assert.Equal(t, "123:abc", fake.tokens[0])
	assert.Equal(t, "-10042", fake.requests[0].ChatID)
	assert.Equal(t, "✅ renewed\nServer: abc", fake.requests[0].Text)
}

func TestTelegramNotifyAPIErrorIsSwallowed(t *testing.T) {
	fake, ts := newFakeTelegram(t, http.StatusBadRequest)

	n := NewTelegram(TelegramOptions{APIURL: ts.URL, Token: "t", ChatID: "c"}, logger.Nop())
	n.Notify(context.Background(), "hello")

	assert.Equal(t, 1, fake.calls(), "exactly one attempt, no retry")

	err := n.send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	n := NewTelegram(TelegramOptions{APIURL: url, Token: "secret-token", ChatID: "c", Timeout: time.Second}, logger.Nop())
	n.Notify(context.Background(), "hello")

	err := n.send(context.Background(), "hello")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestNewWithoutIdentifiersIsNop(t *testing.T) {
	fake, ts := newFakeTelegram(t, http.StatusOK)

	tests := []struct {
		name   string
		token  string
		chatID string
	}{
		{name: "no token", chatID: "c"},
		{name: "no chat", token: "t"},
		{name: "neither"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(&config.Config{
				TelegramAPIURL: ts.URL,
				TelegramToken:  tt.token,
				TelegramChatID: tt.chatID,
			}, logger.Nop())

			assert.IsType(t, Nop{}, n)
			n.Notify(context.Background(), "❌ failed")
		})
	}

	assert.Equal(t, 0, fake.calls())
}

func TestNewWithIdentifiers(t *testing.T) {
	fake, ts := newFakeTelegram(t, http.StatusOK)

	n := New(&config.Config{
		TelegramAPIURL: ts.URL,
		TelegramToken:  "t",
		TelegramChatID: "c",
		NotifyTimeout:  time.Second,
	}, logger.Nop())

	n.Notify(context.Background(), "hi")
	assert.Equal(t, 1, fake.calls())
}

func TestRedactToken(t *testing.T) {
	base := errors.New(`Post "https://api.telegram.org/bot123:abc/sendMessage": dial tcp: timeout`)
	err := redactToken(base, "123:abc")

	assert.NotContains(t, err.Error(), "123:abc")
	assert.ErrorIs(t, err, base)
	assert.Same(t, base, redactToken(base, ""))
}
