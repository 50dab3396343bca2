package app

import (
	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/pkg/logger"

	"go.uber.org/zap"
)

// onIncoming reconciles an incoming_chat_message event with local state
func (s *ChatStore) onIncoming(e domain.IncomingChatMessage) {
	me := s.identity.CurrentUserID()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	msg := e.Message
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	if s.seenLocked(msg.ID) {
		s.mu.Unlock()
		logger.Log.Debug("duplicate chat message ignored", zap.String("message_id", msg.ID))
		return
	}

	chatID := e.Chat.ID
	own := me != "" && msg.SenderID == me

	// 1. a provisional chat of ours confirmed by the server, created under us by
	// the counterparty, or resolved to a chat that already existed off the page
	if prov := s.provisionalForLocked(e); !prov.IsZero() {
		s.promoteLocked(prov, e.Chat, msg, own, e.IsNewChat)
	} else if s.indexLocked(chatID) >= 0 {
		// 2. message to a known chat, or a duplicate new-chat notification
		s.updateKnownLocked(chatID, msg, own)
	} else if e.IsNewChat {
		s.insertNewLocked(e.Chat, msg, own)
	} else {
		// 3. unknown chat, history was never fetched
		s.insertUnfetchedLocked(e.Chat, msg, own)
	}

	// 4. read receipt for the open chat once this update is committed
	var effects []func()
	if s.selected == chatID && chatID.IsDurable() {
		effects = append(effects, func() { s.markReadIfSelected(chatID) })
	}
	s.mu.Unlock()

	s.commit(effects)
}

// provisionalForLocked finds the provisional chat the event confirms: by
// correlation id first, then by participant set for counterparty-created chats
func (s *ChatStore) provisionalForLocked(e domain.IncomingChatMessage) domain.ChatID {
	if e.ClientTempID.IsProvisional() && s.indexLocked(e.ClientTempID) >= 0 {
		return e.ClientTempID
	}
	if e.Chat.IsGroup {
		return domain.ChatID{}
	}
	byKey := domain.ProvisionalID(e.Chat.ParticipantKey())
	if byKey.IsProvisional() && s.indexLocked(byKey) >= 0 {
		return byKey
	}
	return domain.ChatID{}
}

// promoteLocked replaces provisional chat prov with the server chat, keeping
// local profiles and every message accumulated under prov. A chat created by
// this message has its whole history local; an older server chat stays
// unfetched until SetMessages, like any chat learned from a live message.
func (s *ChatStore) promoteLocked(prov domain.ChatID, server domain.Chat, msg domain.Message, own, created bool) {
	durable := server.ID
	provChat := s.chats[s.indexLocked(prov)]

	merged := server.Clone()
	merged.Participants = mergeParticipants(server.Participants, provChat.Participants)
	merged.UnreadCount = 0

	moved := retarget(s.messages[prov], durable)
	if i := s.indexLocked(durable); i >= 0 {
		existing := s.chats[i]
		merged.Participants = mergeParticipants(merged.Participants, existing.Participants)
		merged.UnreadCount = existing.UnreadCount
		merged.LastMessage = newerSnapshot(existing.LastMessage, merged.LastMessage)
		moved = appendUnique(s.messages[durable], moved...)
	}
	_, fetched := s.fetched[durable]
	if created || fetched {
		moved = appendUnique(moved, msg)
		s.fetched[durable] = struct{}{}
	}
	s.messages[durable] = moved

	if s.selected == prov {
		s.selected = durable
	}
	selected := s.selected == durable
	applyMessage(&merged, msg, own || selected)

	s.removeChatLocked(prov)
	s.removeChatLocked(durable)
	s.chats = append([]domain.Chat{merged}, s.chats...)
	s.dropChatStateLocked(prov)

	logger.Log.Info("provisional chat confirmed",
		zap.String("provisional_id", prov.String()),
		zap.String("chat_id", durable.String()))
}

// insertNewLocked adds a chat created by the counterparty, seeded with its first message
func (s *ChatStore) insertNewLocked(server domain.Chat, msg domain.Message, own bool) {
	c := server.Clone()
	c.UnreadCount = 0
	applyMessage(&c, msg, own || s.selected == c.ID)
	s.chats = append([]domain.Chat{c}, s.chats...)
	s.messages[c.ID] = []domain.Message{msg.Clone()}
	s.fetched[c.ID] = struct{}{}
}

// insertUnfetchedLocked adds a chat learned from a live message; its
// history stays unloaded until SetMessages
func (s *ChatStore) insertUnfetchedLocked(server domain.Chat, msg domain.Message, own bool) {
	c := server.Clone()
	c.UnreadCount = 0
	applyMessage(&c, msg, own || s.selected == c.ID)
	s.chats = append([]domain.Chat{c}, s.chats...)
}

// updateKnownLocked refreshes the snapshot, bumps unread and moves the chat to the head.
// The message is appended only when the chat history was fetched.
func (s *ChatStore) updateKnownLocked(id domain.ChatID, msg domain.Message, own bool) {
	i := s.indexLocked(id)
	c := s.chats[i]
	applyMessage(&c, msg, own || s.selected == id)

	s.chats = append(s.chats[:i], s.chats[i+1:]...)
	s.chats = append([]domain.Chat{c}, s.chats...)

	if _, ok := s.fetched[id]; ok {
		s.messages[id] = appendUnique(s.messages[id], msg)
	}
}

func (s *ChatStore) removeChatLocked(id domain.ChatID) {
	if i := s.indexLocked(id); i >= 0 {
		s.chats = append(s.chats[:i], s.chats[i+1:]...)
	}
}

// dropChatStateLocked forgets every per-chat map entry of id
func (s *ChatStore) dropChatStateLocked(id domain.ChatID) {
	delete(s.messages, id)
	delete(s.fetched, id)
	delete(s.typing, id)
	delete(s.typingOut, id)
	s.outTyping.Cancel(id)
}
