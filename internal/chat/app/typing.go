package app

import (
	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/pkg"
)

// StartTyping signals a keystroke in chat id. The typing event goes out once
// per burst; the burst ends after the typing timeout without keystrokes.
// No-op for provisional chats or without a connection.
func (s *ChatStore) StartTyping(id domain.ChatID) {
	s.mu.Lock()
	if s.closed || !id.IsDurable() || !s.connectedLocked() {
		s.mu.Unlock()
		return
	}

	var emit func()
	if !s.typingOut[id] {
		s.typingOut[id] = true
		emit = s.emitLocked(domain.TypingPayload{ChatID: id.String()})
	}
	s.outTyping.Replace(id, s.typingTimeout, func() { s.endTypingBurst(id) })
	s.mu.Unlock()

	if emit != nil {
		s.commit([]func(){emit})
	}
}

// StopTyping ends the current burst of id right away, e.g. on blur or send
func (s *ChatStore) StopTyping(id domain.ChatID) {
	s.outTyping.Cancel(id)
	s.endTypingBurst(id)
}

func (s *ChatStore) endTypingBurst(id domain.ChatID) {
	s.mu.Lock()
	if !s.typingOut[id] {
		s.mu.Unlock()
		return
	}
	delete(s.typingOut, id)
	emit := s.emitLocked(domain.StopTypingPayload{ChatID: id.String()})
	s.mu.Unlock()

	s.commit([]func(){emit})
}

func (s *ChatStore) onUserTyping(e domain.UserTyping) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.typing[e.ChatID] = pkg.AppendIfNotExists(s.typing[e.ChatID], e.UserID)

	// the indicator clears itself when the stop event never arrives
	key := typingKey{chat: e.ChatID, user: e.UserID}
	s.inTyping.Replace(key, s.typingTimeout, func() { s.clearTyping(key) })
	s.mu.Unlock()

	s.commit(nil)
}

func (s *ChatStore) onUserStoppedTyping(e domain.UserStoppedTyping) {
	key := typingKey{chat: e.ChatID, user: e.UserID}
	s.inTyping.Cancel(key)
	s.clearTyping(key)
}

func (s *ChatStore) clearTyping(key typingKey) {
	s.mu.Lock()
	users, ok := s.typing[key.chat]
	if !ok || !pkg.Contains(users, key.user) {
		s.mu.Unlock()
		return
	}
	if users = pkg.Remove(users, key.user); len(users) == 0 {
		delete(s.typing, key.chat)
	} else {
		s.typing[key.chat] = users
	}
	s.mu.Unlock()

	s.commit(nil)
}
