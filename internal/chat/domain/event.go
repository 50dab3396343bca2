package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventName transport event name
type EventName string

// outbound
const (
	EventSendMessage      EventName = "send_message"
	EventTyping           EventName = "typing"
	EventStopTyping       EventName = "stop_typing"
	EventMarkMessagesRead EventName = "mark_messages_read"
)

// inbound
const (
	EventIncomingChatMessage EventName = "incoming_chat_message"
	EventUserTyping          EventName = "user_typing"
	EventUserStoppedTyping   EventName = "user_stopped_typing"
	EventMessagesRead        EventName = "messages_read"
)

// InboundEvents every event name the store subscribes to
var InboundEvents = []EventName{
	EventIncomingChatMessage,
	EventUserTyping,
	EventUserStoppedTyping,
	EventMessagesRead,
}

var (
	// ErrUnknownEvent event name not handled by the client
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidPayload payload lacks a field the event cannot do without
	ErrInvalidPayload = errors.New("invalid event payload")
)

// InboundEvent is one of IncomingChatMessage, UserTyping, UserStoppedTyping, MessagesRead
type InboundEvent interface {
	Name() EventName
}

// IncomingChatMessage a message delivered to one of the user's chats
type IncomingChatMessage struct {
	Chat      Chat
	Message   Message
	IsNewChat bool
	// ClientTempID set when the server confirms a chat this client created provisionally
	ClientTempID ChatID
}

// Name implements InboundEvent
func (IncomingChatMessage) Name() EventName { return EventIncomingChatMessage }

// UserTyping a participant started typing
type UserTyping struct {
	UserID string
	ChatID ChatID
}

// Name implements InboundEvent
func (UserTyping) Name() EventName { return EventUserTyping }

// UserStoppedTyping a participant stopped typing
type UserStoppedTyping struct {
	UserID string
	ChatID ChatID
}

// Name implements InboundEvent
func (UserStoppedTyping) Name() EventName { return EventUserStoppedTyping }

// MessagesRead a participant read the chat
type MessagesRead struct {
	UserID string
	ChatID ChatID
}

// Name implements InboundEvent
func (MessagesRead) Name() EventName { return EventMessagesRead }

type incomingWire struct {
	Chat         *Chat    `json:"chat"`
	Message      *Message `json:"message"`
	IsNewChat    bool     `json:"isNewChat"`
	ClientTempID string   `json:"clientTempId"`
}

type userChatWire struct {
	UserID string `json:"userId"`
	ChatID ChatID `json:"chatId"`
}

// DecodeInbound narrows a raw payload into its typed event.
// Missing optional fields default to empty values; a payload that cannot
// identify its chat is rejected.
func DecodeInbound(name EventName, raw json.RawMessage) (InboundEvent, error) {
	switch name {
	case EventIncomingChatMessage:
		return decodeIncoming(raw)
	case EventUserTyping, EventUserStoppedTyping, EventMessagesRead:
		var w userChatWire
		if err := unmarshalObject(raw, &w); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		w.UserID = strings.TrimSpace(w.UserID)
		if w.UserID == "" || w.ChatID.IsZero() {
			return nil, fmt.Errorf("%s: %w: userId and chatId required", name, ErrInvalidPayload)
		}
		switch name {
		case EventUserTyping:
			return UserTyping{UserID: w.UserID, ChatID: w.ChatID}, nil
		case EventUserStoppedTyping:
			return UserStoppedTyping{UserID: w.UserID, ChatID: w.ChatID}, nil
		default:
			return MessagesRead{UserID: w.UserID, ChatID: w.ChatID}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
}

func decodeIncoming(raw json.RawMessage) (InboundEvent, error) {
	var w incomingWire
	if err := unmarshalObject(raw, &w); err != nil {
		return nil, fmt.Errorf("%s: %w", EventIncomingChatMessage, err)
	}
	if w.Message == nil {
		return nil, fmt.Errorf("%s: %w: message required", EventIncomingChatMessage, ErrInvalidPayload)
	}

	ev := IncomingChatMessage{
		Message:      *w.Message,
		IsNewChat:    w.IsNewChat,
		ClientTempID: ParseChatID(w.ClientTempID),
	}
	if w.Chat != nil {
		ev.Chat = *w.Chat
	}
	if ev.Chat.ID.IsZero() {
		ev.Chat.ID = ev.Message.ChatID
	}
	if !ev.Chat.ID.IsDurable() {
		return nil, fmt.Errorf("%s: %w: durable chat id required", EventIncomingChatMessage, ErrInvalidPayload)
	}
	ev.Message.ChatID = ev.Chat.ID
	if ev.Message.ID == "" {
		return nil, fmt.Errorf("%s: %w: message id required", EventIncomingChatMessage, ErrInvalidPayload)
	}
	if !ev.ClientTempID.IsProvisional() {
		ev.ClientTempID = ChatID{}
	}
	return ev, nil
}

func unmarshalObject(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// OutboundEvent payload the client emits
type OutboundEvent interface {
	Name() EventName
}

// SendMessagePayload either ChatID (durable) or Participants + ClientTempID (provisional)
type SendMessagePayload struct {
	ChatID          string   `json:"chatId,omitempty"`
	Participants    []string `json:"participants,omitempty"`
	Content         string   `json:"content"`
	ClientTempID    string   `json:"clientTempId,omitempty"`
	ClientMessageID string   `json:"clientMessageId,omitempty"`
}

// Name implements OutboundEvent
func (SendMessagePayload) Name() EventName { return EventSendMessage }

// TypingPayload start of a typing burst
type TypingPayload struct {
	ChatID string `json:"chatId"`
}

// Name implements OutboundEvent
func (TypingPayload) Name() EventName { return EventTyping }

// StopTypingPayload end of a typing burst
type StopTypingPayload struct {
	ChatID string `json:"chatId"`
}

// Name implements OutboundEvent
func (StopTypingPayload) Name() EventName { return EventStopTyping }

// MarkMessagesReadPayload the user has read the chat
type MarkMessagesReadPayload struct {
	ChatID string `json:"chatId"`
}

// Name implements OutboundEvent
func (MarkMessagesReadPayload) Name() EventName { return EventMarkMessagesRead }
