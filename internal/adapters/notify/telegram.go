package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTelegramBase = "https://api.telegram.org"

	// Bot API: ~30 mensajes/s globales → 20/s
	telegramRatePerSec = 20
	// maxMessageRunes es el límite de sendMessage.
	maxMessageRunes = 4096
	// maxRetryAfter acota la espera que pide Telegram en un 429.
	maxRetryAfter = 30 * time.Second
)

// ErrChatUnavailable indica que el chat bloqueó al bot o ya no existe (403/400 chat not found).
var ErrChatUnavailable = errors.New("notify: chat unavailable")

// Telegram implementa ports.Messenger sobre la Bot API.
type Telegram struct {
	http    *http.Client
	base    string
	token   string
	limiter *rate.Limiter
}

// NewTelegram crea un messenger de Telegram. baseURL vacío usa la API pública.
func NewTelegram(token, baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = defaultTelegramBase
	}
	return &Telegram{
		http:    &http.Client{Timeout: 15 * time.Second},
		base:    baseURL,
		token:   token,
		limiter: rate.NewLimiter(telegramRatePerSec, 5),
	}
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send envía text (HTML) a chatID. Un 429 se reintenta una vez tras el retry_after indicado.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  truncateRunes(text, maxMessageRunes),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("notify.Telegram.Send: marshal: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("notify.Telegram.Send: rate limiter: %w", err)
		}

		resp, err := t.post(ctx, body)
		if err != nil {
			return fmt.Errorf("notify.Telegram.Send: chat %d: %w", chatID, err)
		}
		if resp.OK {
			return nil
		}

		switch {
		case resp.ErrorCode == http.StatusTooManyRequests && attempt == 0:
			wait := time.Duration(resp.Parameters.RetryAfter) * time.Second
			if wait <= 0 || wait > maxRetryAfter {
				wait = time.Second
			}
			slog.Warn("telegram rate limited", "chat_id", chatID, "retry_after", wait)
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("notify.Telegram.Send: chat %d: %w", chatID, ctx.Err())
			}
			continue
		case resp.ErrorCode == http.StatusForbidden, resp.ErrorCode == http.StatusBadRequest && isChatNotFound(resp.Description):
			return fmt.Errorf("notify.Telegram.Send: chat %d: %s: %w", chatID, resp.Description, ErrChatUnavailable)
		}
		return fmt.Errorf("notify.Telegram.Send: chat %d: api error %d: %s", chatID, resp.ErrorCode, resp.Description)
	}
	return fmt.Errorf("notify.Telegram.Send: chat %d: still rate limited", chatID)
}

func (t *Telegram) post(ctx context.Context, body []byte) (apiResponse, error) {
	var out apiResponse
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return out, redactToken(err, t.token)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !out.OK && out.ErrorCode == 0 {
		out.ErrorCode = resp.StatusCode
	}
	return out, nil
}

func isChatNotFound(desc string) bool {
	return strings.Contains(strings.ToLower(desc), "chat not found")
}

// redactToken evita que el token del bot acabe en los logs vía la URL del error.
func redactToken(err error, token string) error {
	var urlErr *url.Error
	if token == "" || !errors.As(err, &urlErr) {
		return err
	}
	urlErr.URL = strings.ReplaceAll(urlErr.URL, token, "<token>")
	return urlErr
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
