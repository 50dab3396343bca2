package app

import (
	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/pkg"
)

// SetSelectedChatID opens id and marks it read. A zero id clears the selection.
func (s *ChatStore) SetSelectedChatID(id domain.ChatID) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.selected = id
	mark := s.markReadLocked(id)
	s.mu.Unlock()

	s.commit([]func(){mark})
}

// MarkMessagesAsRead tells the server the user read id and clears its
// unread count. No-op for provisional chats or without a connection.
func (s *ChatStore) MarkMessagesAsRead(id domain.ChatID) {
	s.mu.Lock()
	mark := s.markReadLocked(id)
	s.mu.Unlock()

	if mark != nil {
		s.commit([]func(){mark})
	}
}

// markReadIfSelected is the deferred receipt after an incoming message;
// selecting another chat in between cancels it
func (s *ChatStore) markReadIfSelected(id domain.ChatID) {
	s.mu.Lock()
	var mark func()
	if s.selected == id {
		mark = s.markReadLocked(id)
	}
	s.mu.Unlock()

	if mark != nil {
		s.commit([]func(){mark})
	}
}

func (s *ChatStore) markReadLocked(id domain.ChatID) func() {
	if s.closed || !id.IsDurable() || !s.connectedLocked() {
		return nil
	}
	if i := s.indexLocked(id); i >= 0 {
		s.chats[i].UnreadCount = 0
	}
	return s.emitLocked(domain.MarkMessagesReadPayload{ChatID: id.String()})
}

// onMessagesRead propagates a read receipt. The unread count is kept when
// the reader is the sender of the last message.
func (s *ChatStore) onMessagesRead(e domain.MessagesRead) {
	s.mu.Lock()
	i := s.indexLocked(e.ChatID)
	if s.closed || i < 0 {
		s.mu.Unlock()
		return
	}

	c := s.chats[i]
	if c.LastMessage != nil {
		lm := *c.LastMessage
		lm.ReadBy = pkg.AppendIfNotExists(append([]string(nil), lm.ReadBy...), e.UserID)
		c.LastMessage = &lm
	}
	if c.LastMessage == nil || e.UserID != c.LastMessage.SenderID {
		c.UnreadCount = 0
	}
	s.chats[i] = c

	msgs := s.messages[e.ChatID]
	for j := range msgs {
		if !pkg.Contains(msgs[j].ReadBy, e.UserID) {
			msgs[j].ReadBy = append(append([]string(nil), msgs[j].ReadBy...), e.UserID)
		}
	}
	s.mu.Unlock()

	s.commit(nil)
}
