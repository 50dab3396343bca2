package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"exotoura_chat/internal/chat/domain"
	errprocess "exotoura_chat/pkg/err"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	// ErrUnexpectedStatus the API answered with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrNoToken no bearer token available for the request
	ErrNoToken = errors.New("no token")
)

// TokenSource supplies the bearer token of the signed-in user
type TokenSource interface {
	Token() string
}

// ChatAPI REST collaborator for chat lists and histories
type ChatAPI interface {
	FetchChats(ctx context.Context) ([]domain.Chat, error)
	FetchMessages(ctx context.Context, chatID domain.ChatID) ([]domain.Message, error)
}

type chatAPI struct {
	baseURL string
	timeout time.Duration
	tokens  TokenSource
}

// NewChatAPI create the REST client
func NewChatAPI(baseURL string, timeout time.Duration, tokens TokenSource) ChatAPI {
	return &chatAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		tokens:  tokens,
	}
}

// FetchChats GET /chats
func (a *chatAPI) FetchChats(ctx context.Context) ([]domain.Chat, error) {
	body, err := a.get(ctx, "/chats")
	if err != nil {
		return nil, err
	}

	var chats []domain.Chat
	if err := decodeList(body, &chats, "chats"); err != nil {
		return nil, errprocess.Wrap("decode chat list", err)
	}

	out := chats[:0]
	for _, c := range chats {
		if c.ID.IsDurable() {
			out = append(out, c)
		}
	}
	return out, nil
}

// FetchMessages GET /chats/{id}/messages. Provisional chats have no server history.
func (a *chatAPI) FetchMessages(ctx context.Context, chatID domain.ChatID) ([]domain.Message, error) {
	if !chatID.IsDurable() {
		return []domain.Message{}, nil
	}

	body, err := a.get(ctx, "/chats/"+url.PathEscape(chatID.String())+"/messages")
	if err != nil {
		return nil, err
	}

	var msgs []domain.Message
	if err := decodeList(body, &msgs, "messages"); err != nil {
		return nil, errprocess.Wrap("decode messages", err, zap.String("chat_id", chatID.String()))
	}
	for i := range msgs {
		msgs[i].ChatID = chatID
	}
	return msgs, nil
}

func (a *chatAPI) get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token := a.tokens.Token()
	if token == "" {
		return nil, ErrNoToken
	}

	agent := fiber.Get(a.baseURL + path)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if timeout := a.requestTimeout(ctx); timeout > 0 {
		agent.Timeout(timeout)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errprocess.Wrap("GET "+path, errors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return nil, errprocess.Wrap(fmt.Sprintf("GET %s: %d", path, code), ErrUnexpectedStatus,
			zap.ByteString("body", truncate(body, 256)))
	}
	return body, nil
}

// requestTimeout the configured timeout, shortened to the ctx deadline
func (a *chatAPI) requestTimeout(ctx context.Context) time.Duration {
	timeout := a.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	return timeout
}

// decodeList accepts a bare JSON array or an object wrapping it under key or "data"
func decodeList(body []byte, v interface{}, key string) error {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		return json.Unmarshal(body, v)
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return err
	}
	for _, k := range []string{key, "data"} {
		if raw, ok := wrapped[k]; ok {
			return json.Unmarshal(raw, v)
		}
	}
	return fmt.Errorf("missing %q in response", key)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
