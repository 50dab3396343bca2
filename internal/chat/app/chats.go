package app

import (
	"strings"

	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/pkg"
	"exotoura_chat/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddChat opens the one-to-one or ad hoc chat of participants. The current
// user is added when missing. An existing non-group chat over the same
// participant set is selected instead of creating a duplicate; otherwise a
// provisional chat is appended to the list and selected.
func (s *ChatStore) AddChat(participants []domain.Participant) domain.ChatID {
	participants = domain.UniqueParticipants(participants)
	if me := s.identity.CurrentUserID(); me != "" && !pkg.Contains(domain.ParticipantIDs(participants), me) {
		participants = append([]domain.Participant{{ID: me}}, participants...)
	}
	key := domain.ParticipantKey(domain.ParticipantIDs(participants))
	if key == "" {
		return domain.ChatID{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ChatID{}
	}
	for _, c := range s.chats {
		if !c.IsGroup && c.ParticipantKey() == key {
			s.mu.Unlock()
			s.SetSelectedChatID(c.ID)
			return c.ID
		}
	}

	id := domain.ProvisionalID(key)
	s.chats = append(s.chats, domain.Chat{
		ID:           id,
		Participants: participants,
		UpdatedAt:    s.now(),
	})
	s.messages[id] = []domain.Message{}
	s.mu.Unlock()

	logger.Log.Debug("provisional chat created", zap.String("chat_id", id.String()))
	s.SetSelectedChatID(id)
	return id
}

// SetChats applies a freshly fetched chat list page. Pending provisional
// chats and local chats missing from the page are kept after it; a
// provisional chat whose participants match a durable chat of the page is
// folded into that chat.
func (s *ChatStore) SetChats(page []domain.Chat) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	merged, collapse := mergeChatList(s.chats, page)
	s.chats = merged
	for prov, durable := range collapse {
		s.collapseLocked(prov, durable)
	}
	s.mu.Unlock()

	s.commit(nil)
}

// collapseLocked moves the messages and selection of prov to durable
func (s *ChatStore) collapseLocked(prov, durable domain.ChatID) {
	if msgs := s.messages[prov]; len(msgs) > 0 {
		s.messages[durable] = appendUnique(s.messages[durable], retarget(msgs, durable)...)
	}
	if s.selected == prov {
		s.selected = durable
	}
	s.dropChatStateLocked(prov)
}

// SetMessages replaces the message list of id with its fetched history
func (s *ChatStore) SetMessages(id domain.ChatID, msgs []domain.Message) {
	if id.IsZero() {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	list := appendUnique(nil, retarget(msgs, id)...)
	for _, m := range list {
		if m.ID != "" {
			s.seenLocked(m.ID)
		}
	}
	s.messages[id] = list
	s.fetched[id] = struct{}{}
	s.mu.Unlock()

	s.commit(nil)
}

// SendMessage emits content to chat id. Blank content, unknown chats and a
// missing connection make it a no-op; the result tells whether it was queued.
func (s *ChatStore) SendMessage(id domain.ChatID, content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || !s.connectedLocked() {
		s.mu.Unlock()
		return false
	}

	payload := domain.SendMessagePayload{
		Content:         content,
		ClientMessageID: uuid.New().String(),
	}
	switch id.Kind() {
	case domain.KindProvisional:
		payload.Participants = domain.ParticipantIDs(s.chats[i].Participants)
		payload.ClientTempID = id.String()
	case domain.KindDurable:
		payload.ChatID = id.String()
	}
	emit := s.emitLocked(payload)
	s.mu.Unlock()

	s.commit([]func(){emit})
	s.StopTyping(id)
	return true
}
