package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"exotoura_chat/pkg"
)

// Participant a chat member; the server may send only the id
type Participant struct {
	ID     string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// UnmarshalJSON accepts "id" or {"_id"|"id", "name", "avatar"}
func (p *Participant) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Participant{}
		return nil
	}
	if b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*p = Participant{ID: id}
		return nil
	}
	var w struct {
		ID     string `json:"_id"`
		AltID  string `json:"id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.ID == "" {
		w.ID = w.AltID
	}
	*p = Participant{ID: w.ID, Name: w.Name, Avatar: w.Avatar}
	return nil
}

// ParticipantIDs ids of ps in order
func ParticipantIDs(ps []Participant) []string {
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

// UniqueParticipants drops empty ids and later duplicates
func UniqueParticipants(ps []Participant) []Participant {
	seen := make(map[string]struct{}, len(ps))
	out := make([]Participant, 0, len(ps))
	for _, p := range ps {
		if p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// LastMessage snapshot shown in the chat list. SenderID is empty for system messages.
type LastMessage struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"sender,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ReadBy    []string  `json:"readBy,omitempty"`
}

// UnmarshalJSON tolerant decoding of the server snapshot
func (l *LastMessage) UnmarshalJSON(b []byte) error {
	var w struct {
		Content   string        `json:"content"`
		Sender    *Participant  `json:"sender"`
		CreatedAt flexTime      `json:"createdAt"`
		ReadBy    []Participant `json:"readBy"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*l = LastMessage{
		Content:   w.Content,
		CreatedAt: time.Time(w.CreatedAt),
		ReadBy:    pkg.SortedUnique(ParticipantIDs(w.ReadBy)),
	}
	if w.Sender != nil {
		l.SenderID = w.Sender.ID
	}
	return nil
}

// Chat a conversation between two or more participants
type Chat struct {
	ID           ChatID        `json:"_id"`
	Participants []Participant `json:"participants"`
	IsGroup      bool          `json:"isGroup"`
	GroupName    string        `json:"groupName,omitempty"`
	GroupPicture string        `json:"groupPicture,omitempty"`
	LastMessage  *LastMessage  `json:"lastMessage,omitempty"`
	UnreadCount  int           `json:"unreadCount"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// UnmarshalJSON tolerant decoding of a server chat
func (c *Chat) UnmarshalJSON(b []byte) error {
	var w struct {
		ID           ChatID        `json:"_id"`
		AltID        ChatID        `json:"id"`
		Participants []Participant `json:"participants"`
		IsGroup      bool          `json:"isGroup"`
		GroupName    string        `json:"groupName"`
		GroupPicture string        `json:"groupPicture"`
		LastMessage  *LastMessage  `json:"lastMessage"`
		UnreadCount  int           `json:"unreadCount"`
		UpdatedAt    flexTime      `json:"updatedAt"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.ID.IsZero() {
		w.ID = w.AltID
	}
	if w.UnreadCount < 0 {
		w.UnreadCount = 0
	}
	*c = Chat{
		ID:           w.ID,
		Participants: UniqueParticipants(w.Participants),
		IsGroup:      w.IsGroup,
		GroupName:    w.GroupName,
		GroupPicture: w.GroupPicture,
		LastMessage:  w.LastMessage,
		UnreadCount:  w.UnreadCount,
		UpdatedAt:    time.Time(w.UpdatedAt),
	}
	return nil
}

// ParticipantKey canonical key over the chat participants
func (c Chat) ParticipantKey() string {
	return ParticipantKey(ParticipantIDs(c.Participants))
}

// Clone deep copy, so callers never share slices with the store
func (c Chat) Clone() Chat {
	out := c
	out.Participants = append([]Participant(nil), c.Participants...)
	if c.LastMessage != nil {
		lm := *c.LastMessage
		lm.ReadBy = append([]string(nil), c.LastMessage.ReadBy...)
		out.LastMessage = &lm
	}
	return out
}

// Message one chat message. SenderID is empty for system messages.
type Message struct {
	ID        string    `json:"_id"`
	ChatID    ChatID    `json:"chat"`
	SenderID  string    `json:"sender,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	ReadBy    []string  `json:"readBy,omitempty"`
	// ClientID correlation id supplied by the sending client
	ClientID string `json:"clientMessageId,omitempty"`
}

// UnmarshalJSON tolerant decoding of a server message
func (m *Message) UnmarshalJSON(b []byte) error {
	var w struct {
		ID        string        `json:"_id"`
		AltID     string        `json:"id"`
		Chat      ChatID        `json:"chat"`
		ChatID    ChatID        `json:"chatId"`
		Sender    *Participant  `json:"sender"`
		Content   string        `json:"content"`
		CreatedAt flexTime      `json:"createdAt"`
		ReadBy    []Participant `json:"readBy"`
		ClientID  string        `json:"clientMessageId"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.ID == "" {
		w.ID = w.AltID
	}
	if w.Chat.IsZero() {
		w.Chat = w.ChatID
	}
	*m = Message{
		ID:        w.ID,
		ChatID:    w.Chat,
		Content:   w.Content,
		CreatedAt: time.Time(w.CreatedAt),
		ReadBy:    pkg.SortedUnique(ParticipantIDs(w.ReadBy)),
		ClientID:  w.ClientID,
	}
	if w.Sender != nil {
		m.SenderID = w.Sender.ID
	}
	return nil
}

// Snapshot builds the chat list snapshot of m
func (m Message) Snapshot() *LastMessage {
	return &LastMessage{
		Content:   m.Content,
		SenderID:  m.SenderID,
		CreatedAt: m.CreatedAt,
		ReadBy:    append([]string(nil), m.ReadBy...),
	}
}

// Clone deep copy
func (m Message) Clone() Message {
	out := m
	out.ReadBy = append([]string(nil), m.ReadBy...)
	return out
}

// flexTime accepts RFC3339 strings, unix milliseconds, "" and null
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*t = flexTime{}
		return nil
	}
	if b[0] != '"' {
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			*t = flexTime{}
			return nil
		}
		*t = flexTime(time.UnixMilli(ms).UTC())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		*t = flexTime{}
		return nil
	}
	*t = flexTime(parsed)
	return nil
}
