package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/consensusbot/internal/adapters/notify"
)

func TestTelegram_Send_Success(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTEST:token/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	tg := notify.NewTelegram("TEST:token", srv.URL)
	require.NoError(t, tg.Send(context.Background(), -100123, "<b>hola</b>"))

	assert.Equal(t, float64(-100123), got["chat_id"])
	assert.Equal(t, "<b>hola</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, true, got["disable_web_page_preview"])
}

func TestTelegram_Send_TruncatesLongText(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		text = body.Text
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := notify.NewTelegram("t", srv.URL)
	require.NoError(t, tg.Send(context.Background(), 1, strings.Repeat("é", 5000)))
	assert.Equal(t, 4096, len([]rune(text)))
}

func TestTelegram_Send_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	tg := notify.NewTelegram("t", srv.URL)
	err := tg.Send(context.Background(), 1, "hola")
	assert.ErrorIs(t, err, notify.ErrChatUnavailable)
}

func TestTelegram_Send_ChatNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := notify.NewTelegram("t", srv.URL).Send(context.Background(), 1, "hola")
	assert.ErrorIs(t, err, notify.ErrChatUnavailable)
}

func TestTelegram_Send_RetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":1}}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	err := notify.NewTelegram("t", srv.URL).Send(context.Background(), 1, "hola")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegram_Send_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
	}))
	defer srv.Close()

	err := notify.NewTelegram("t", srv.URL).Send(context.Background(), 1, "<b>")
	require.Error(t, err)
	assert.NotErrorIs(t, err, notify.ErrChatUnavailable)
	assert.Contains(t, err.Error(), "can't parse entities")
}

func TestTelegram_Send_TokenNotLeaked(t *testing.T) {
	tg := notify.NewTelegram("SECRET123", "http://127.0.0.1:1")
	err := tg.Send(context.Background(), 1, "hola")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET123")
}
