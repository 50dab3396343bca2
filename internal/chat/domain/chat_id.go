package domain

import (
	"encoding/json"
	"strings"

	"exotoura_chat/pkg"
)

// ChatIDKind tells which variant a ChatID holds
type ChatIDKind uint8

const (
	// KindNone zero value, no chat
	KindNone ChatIDKind = iota
	// KindProvisional client-side chat not yet confirmed by the server
	KindProvisional
	// KindDurable server-assigned chat id
	KindDurable
)

// ProvisionalPrefix reserved prefix of provisional ids on the wire
const ProvisionalPrefix = "temp-"

// ChatID is either Provisional(participantKey) or Durable(serverID).
// It is comparable and can be used as a map key.
type ChatID struct {
	kind  ChatIDKind
	value string
}

// ParticipantKey sorts and de-duplicates ids and joins them with "-"
func ParticipantKey(ids []string) string {
	return strings.Join(pkg.SortedUnique(ids), "-")
}

// ProvisionalID build a provisional id from a participant key
func ProvisionalID(participantKey string) ChatID {
	if participantKey == "" {
		return ChatID{}
	}
	return ChatID{kind: KindProvisional, value: participantKey}
}

// ProvisionalFor build the provisional id of a participant set
func ProvisionalFor(userIDs []string) ChatID {
	return ProvisionalID(ParticipantKey(userIDs))
}

// DurableID wraps a server id. Ids carrying the reserved provisional
// prefix are rejected and yield the zero ChatID.
func DurableID(serverID string) ChatID {
	if serverID == "" || strings.HasPrefix(serverID, ProvisionalPrefix) {
		return ChatID{}
	}
	return ChatID{kind: KindDurable, value: serverID}
}

// ParseChatID maps the wire form back to a ChatID
func ParseChatID(s string) ChatID {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, ProvisionalPrefix) {
		return ProvisionalID(strings.TrimPrefix(s, ProvisionalPrefix))
	}
	return DurableID(s)
}

// Kind returns the variant
func (c ChatID) Kind() ChatIDKind { return c.kind }

// IsZero no chat
func (c ChatID) IsZero() bool { return c.kind == KindNone }

// IsProvisional chat awaiting server confirmation
func (c ChatID) IsProvisional() bool { return c.kind == KindProvisional }

// IsDurable server-assigned
func (c ChatID) IsDurable() bool { return c.kind == KindDurable }

// Value is the participant key for provisional ids and the server id for durable ones
func (c ChatID) Value() string { return c.value }

// String wire form
func (c ChatID) String() string {
	switch c.kind {
	case KindProvisional:
		return ProvisionalPrefix + c.value
	case KindDurable:
		return c.value
	default:
		return ""
	}
}

// MarshalJSON encodes the wire form
func (c ChatID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts the wire form or null
func (c *ChatID) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*c = ChatID{}
		return nil
	}
	*c = ParseChatID(*s)
	return nil
}
