package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/internal/chat/transport"
	"exotoura_chat/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func at(minute int) time.Time { return baseTime.Add(time.Duration(minute) * time.Minute) }

func newConnectedStore(t *testing.T, me string, opts ...Option) (*ChatStore, *MockTransport) {
	t.Helper()
	logger.SetNewNop()

	tr := NewMockTransport()
	tr.On("Connect", mock.Anything, "tok").Return(nil)
	tr.On("Emit", mock.Anything, mock.Anything).Return(nil)
	tr.On("Close").Return(nil)

	s := NewChatStore(func() transport.Transport { return tr }, StaticIdentity{UserID: me, Tok: "tok"}, opts...)
	s.InitializeSocket(context.Background())
	require.True(t, s.Connected())
	t.Cleanup(func() { _ = s.Close() })
	return s, tr
}

func participants(ids ...string) []domain.Participant {
	out := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Participant{ID: id})
	}
	return out
}

func durableChat(id string, ids ...string) domain.Chat {
	return domain.Chat{ID: domain.DurableID(id), Participants: participants(ids...)}
}

func incoming(chatID, msgID, sender string, createdAt time.Time, isNew bool, tempID string, ids ...string) map[string]interface{} {
	ev := map[string]interface{}{
		"chat": map[string]interface{}{"_id": chatID, "participants": ids},
		"message": map[string]interface{}{
			"_id":       msgID,
			"sender":    sender,
			"content":   "msg " + msgID,
			"createdAt": createdAt.Format(time.RFC3339Nano),
		},
		"isNewChat": isNew,
	}
	if tempID != "" {
		ev["clientTempId"] = tempID
	}
	return ev
}

func chatIDs(chats []domain.Chat) []string {
	out := make([]string, 0, len(chats))
	for _, c := range chats {
		out = append(out, c.ID.String())
	}
	return out
}

func messageIDs(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func markReadCount(tr *MockTransport, chatID string) int {
	n := 0
	for _, p := range tr.Emitted(domain.EventMarkMessagesRead) {
		if p.(domain.MarkMessagesReadPayload).ChatID == chatID {
			n++
		}
	}
	return n
}

func TestChatStore_InitializeSocket(t *testing.T) {
	logger.SetNewNop()

	t.Run("no token", func(t *testing.T) {
		dials := 0
		s := NewChatStore(func() transport.Transport { dials++; return NewMockTransport() }, StaticIdentity{UserID: "A"})
		s.InitializeSocket(context.Background())
		assert.Equal(t, 0, dials)
		assert.False(t, s.Connected())
	})

	t.Run("retry after failure reuses the transport", func(t *testing.T) {
		dials := 0
		tr := NewMockTransport()
		tr.On("Connect", mock.Anything, "tok").Return(errors.New("connection refused")).Once()
		tr.On("Connect", mock.Anything, "tok").Return(nil).Once()
		tr.On("Close").Return(nil)

		s := NewChatStore(func() transport.Transport { dials++; return tr }, StaticIdentity{UserID: "A", Tok: "tok"})
		defer s.Close()

		s.InitializeSocket(context.Background())
		assert.False(t, s.Connected())

		s.InitializeSocket(context.Background())
		assert.True(t, s.Connected())

		s.InitializeSocket(context.Background())
		tr.AssertNumberOfCalls(t, "Connect", 2)
		assert.Equal(t, 1, dials)
		for _, name := range domain.InboundEvents {
			assert.Equal(t, 1, tr.Subscriptions(name), name)
		}
	})
}

func TestChatStore_AddChat(t *testing.T) {
	s, tr := newConnectedStore(t, "A")

	id := s.AddChat([]domain.Participant{{ID: "B", Name: "Bea"}})
	assert.Equal(t, "temp-A-B", id.String())
	assert.True(t, id.IsProvisional())

	again := s.AddChat(participants("B", "A"))
	assert.Equal(t, id, again)

	chats := s.Chats()
	require.Len(t, chats, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, domain.ParticipantIDs(chats[0].Participants))
	assert.False(t, chats[0].IsGroup)
	assert.Equal(t, id, s.SelectedChatID())
	assert.Empty(t, tr.Emitted(domain.EventMarkMessagesRead), "provisional chats are never marked read")

	t.Run("existing durable chat is selected", func(t *testing.T) {
		s.SetChats([]domain.Chat{durableChat("c1", "A", "C")})
		got := s.AddChat(participants("C"))
		assert.Equal(t, domain.DurableID("c1"), got)
		assert.Equal(t, got, s.SelectedChatID())
		assert.Equal(t, 1, markReadCount(tr, "c1"))
		assert.Len(t, s.Chats(), 2)
	})

	t.Run("empty participant set", func(t *testing.T) {
		anon := NewChatStore(func() transport.Transport { return NewMockTransport() }, StaticIdentity{})
		assert.True(t, anon.AddChat(nil).IsZero())
		assert.Empty(t, anon.Chats())
	})
}

func TestChatStore_PromotesProvisionalChat(t *testing.T) {
	s, tr := newConnectedStore(t, "A")

	prov := s.AddChat([]domain.Participant{{ID: "B", Name: "Bea", Avatar: "bea.png"}})
	s.SetMessages(prov, []domain.Message{{ID: "m0", SenderID: "A", Content: "draft", CreatedAt: at(0)}})

	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m1", "B", at(1), true, "temp-A-B", "A", "B"))

	c1 := domain.DurableID("c1")
	chats := s.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, c1, chats[0].ID)
	assert.Equal(t, []domain.Participant{{ID: "A"}, {ID: "B", Name: "Bea", Avatar: "bea.png"}}, chats[0].Participants)
	assert.Equal(t, 0, chats[0].UnreadCount)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "msg m1", chats[0].LastMessage.Content)

	_, ok := s.Chat(prov)
	assert.False(t, ok)
	assert.Empty(t, s.Messages(prov))

	msgs := s.Messages(c1)
	assert.Equal(t, []string{"m0", "m1"}, messageIDs(msgs))
	for _, m := range msgs {
		assert.Equal(t, c1, m.ChatID)
	}
	assert.True(t, s.IsFetched(c1))
	assert.Equal(t, c1, s.SelectedChatID())
	assert.Equal(t, 1, markReadCount(tr, "c1"))
}

func TestChatStore_ConfirmationWithoutProvisionalChat(t *testing.T) {
	s, tr := newConnectedStore(t, "A")

	tr.Fire(domain.EventIncomingChatMessage, incoming("c7", "m1", "Z", at(1), true, "temp-A-Z", "A", "Z"))

	chats := s.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, "c7", chats[0].ID.String())
	assert.Equal(t, 1, chats[0].UnreadCount)
	assert.Equal(t, []string{"m1"}, messageIDs(s.Messages(chats[0].ID)))
	assert.True(t, s.IsFetched(chats[0].ID))
}

func TestChatStore_CounterpartyNewChat(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "C")})

	tr.Fire(domain.EventIncomingChatMessage, incoming("c2", "m1", "B", at(1), true, "", "A", "B"))
	assert.Equal(t, []string{"c2", "c1"}, chatIDs(s.Chats()))

	// duplicate notification for a chat that is already known
	tr.Fire(domain.EventIncomingChatMessage, incoming("c2", "m2", "B", at(2), true, "", "A", "B"))

	c2, ok := s.Chat(domain.DurableID("c2"))
	require.True(t, ok)
	assert.Equal(t, 2, c2.UnreadCount)
	assert.Equal(t, []string{"m1", "m2"}, messageIDs(s.Messages(c2.ID)))
	assert.Len(t, s.Chats(), 2)
}

func TestChatStore_CounterpartyChatAbsorbsProvisional(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	prov := s.AddChat(participants("B"))

	tr.Fire(domain.EventIncomingChatMessage, incoming("c2", "m1", "B", at(1), true, "", "A", "B"))

	assert.Equal(t, []string{"c2"}, chatIDs(s.Chats()))
	assert.Equal(t, domain.DurableID("c2"), s.SelectedChatID())
	_, ok := s.Chat(prov)
	assert.False(t, ok)
}

func TestChatStore_ExistingServerChatAbsorbsProvisional(t *testing.T) {
	t.Run("echoed client temp id", func(t *testing.T) {
		s, tr := newConnectedStore(t, "A")
		prov := s.AddChat(participants("B"))
		require.True(t, s.SendMessage(prov, "hi"))

		tr.Fire(domain.EventIncomingChatMessage, incoming("c9", "m1", "A", at(1), false, "temp-A-B", "A", "B"))

		c9 := domain.DurableID("c9")
		assert.Equal(t, []string{"c9"}, chatIDs(s.Chats()))
		assert.Equal(t, c9, s.SelectedChatID())
		_, ok := s.Chat(prov)
		assert.False(t, ok)
		assert.False(t, s.IsFetched(c9), "older history of c9 is still on the server")
		assert.Equal(t, 1, markReadCount(tr, "c9"))

		require.True(t, s.SendMessage(c9, "again"))
		sent := tr.Emitted(domain.EventSendMessage)
		require.Len(t, sent, 2)
		next := sent[1].(domain.SendMessagePayload)
		assert.Equal(t, "c9", next.ChatID)
		assert.Empty(t, next.ClientTempID)
		assert.Empty(t, next.Participants)
	})

	t.Run("matched by participants", func(t *testing.T) {
		s, tr := newConnectedStore(t, "A")
		prov := s.AddChat(participants("B"))
		s.SetChats([]domain.Chat{durableChat("c1", "A", "C")})

		tr.Fire(domain.EventIncomingChatMessage, incoming("c9", "m1", "B", at(1), false, "", "B", "A"))

		assert.Equal(t, []string{"c9", "c1"}, chatIDs(s.Chats()))
		assert.Equal(t, domain.DurableID("c9"), s.SelectedChatID())
		_, ok := s.Chat(prov)
		assert.False(t, ok)
		c9, _ := s.Chat(domain.DurableID("c9"))
		assert.Equal(t, 0, c9.UnreadCount, "selected chat stays read")
	})
}

func TestChatStore_KnownChatWithoutHistory(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B"), durableChat("c2", "A", "C")})

	tr.Fire(domain.EventIncomingChatMessage, incoming("c2", "m1", "C", at(1), false, ""))

	chats := s.Chats()
	assert.Equal(t, []string{"c2", "c1"}, chatIDs(chats))
	assert.Equal(t, 1, chats[0].UnreadCount)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "C", chats[0].LastMessage.SenderID)
	assert.True(t, chats[0].UpdatedAt.Equal(at(1)))

	assert.False(t, s.IsFetched(chats[0].ID))
	assert.Empty(t, s.Messages(chats[0].ID), "live message is dropped until the history is fetched")
}

func TestChatStore_FetchedChatAppends(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	c1 := domain.DurableID("c1")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B")})
	s.SetMessages(c1, []domain.Message{
		{ID: "m1", SenderID: "B", CreatedAt: at(1)},
		{ID: "m2", SenderID: "A", CreatedAt: at(2)},
	})

	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m3", "B", at(3), false, ""))

	assert.True(t, s.IsFetched(c1))
	assert.Equal(t, []string{"m1", "m2", "m3"}, messageIDs(s.Messages(c1)))
}

func TestChatStore_UnknownChatMessage(t *testing.T) {
	s, tr := newConnectedStore(t, "A")

	tr.Fire(domain.EventIncomingChatMessage, incoming("c5", "m1", "E", at(1), false, "", "A", "E"))

	c5, ok := s.Chat(domain.DurableID("c5"))
	require.True(t, ok)
	assert.Equal(t, 1, c5.UnreadCount)
	assert.False(t, s.IsFetched(c5.ID))
	assert.Empty(t, s.Messages(c5.ID))
}

func TestChatStore_SelectedChatStaysRead(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	c1 := domain.DurableID("c1")
	chat := durableChat("c1", "A", "B")
	chat.UnreadCount = 2
	s.SetChats([]domain.Chat{chat, durableChat("c2", "A", "C")})

	s.SetSelectedChatID(c1)
	got, _ := s.Chat(c1)
	assert.Equal(t, 0, got.UnreadCount)

	for i := 1; i <= 3; i++ {
		tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m"+string(rune('0'+i)), "B", at(i), false, ""))
		got, _ = s.Chat(c1)
		assert.Equal(t, 0, got.UnreadCount)
	}
	assert.Equal(t, 4, markReadCount(tr, "c1"))

	s.SetSelectedChatID(domain.DurableID("c2"))
	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m9", "B", at(9), false, ""))
	got, _ = s.Chat(c1)
	assert.Equal(t, 1, got.UnreadCount)
	assert.Equal(t, 4, markReadCount(tr, "c1"), "no receipt once the chat is deselected")
}

func TestChatStore_DuplicateAndLateMessages(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	c1 := domain.DurableID("c1")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B")})

	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m2", "B", at(2), false, ""))
	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m2", "B", at(2), false, ""))
	got, _ := s.Chat(c1)
	assert.Equal(t, 1, got.UnreadCount)

	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m1", "B", at(1), false, ""))
	got, _ = s.Chat(c1)
	assert.Equal(t, 2, got.UnreadCount)
	assert.Equal(t, "msg m2", got.LastMessage.Content, "older message never replaces the snapshot")
	assert.True(t, got.UpdatedAt.Equal(at(2)))
}

func TestChatStore_SeenIDsAreBounded(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	s.seenLimit = 2
	c1 := domain.DurableID("c1")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B")})

	for i := 1; i <= 3; i++ {
		tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m"+string(rune('0'+i)), "B", at(i), false, ""))
	}
	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m3", "B", at(3), false, ""))

	got, _ := s.Chat(c1)
	assert.Equal(t, 3, got.UnreadCount, "recent duplicate still ignored")

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.seen, 2)
	assert.Equal(t, []string{"m2", "m3"}, s.seenOrder)
}

func TestChatStore_OwnEcho(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	c1 := domain.DurableID("c1")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B")})

	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m1", "A", at(1), false, ""))

	got, _ := s.Chat(c1)
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, "A", got.LastMessage.SenderID)
}

func TestChatStore_MalformedEventsAreDropped(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B")})
	before := s.Chats()
	dropped := inboundEvents.WithLabelValues(string(domain.EventIncomingChatMessage), "dropped")
	droppedBefore := testutil.ToFloat64(dropped)

	tr.Fire(domain.EventIncomingChatMessage, `{`)
	tr.Fire(domain.EventIncomingChatMessage, `{"chat":{"_id":"temp-A-B"},"message":{"_id":"m1"}}`)
	tr.Fire(domain.EventIncomingChatMessage, `null`)
	tr.Fire(domain.EventUserTyping, `{"userId":"B"}`)
	tr.Fire(domain.EventMessagesRead, `{"chatId":"c1"}`)

	assert.Equal(t, before, s.Chats())
	assert.Empty(t, s.TypingUsers(domain.DurableID("c1")))
	assert.Equal(t, droppedBefore+3, testutil.ToFloat64(dropped))
}

func TestChatStore_MessagesRead(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	c1 := domain.DurableID("c1")
	s.SetChats([]domain.Chat{{
		ID:           c1,
		Participants: participants("A", "B"),
		UnreadCount:  3,
		LastMessage:  &domain.LastMessage{Content: "hi", SenderID: "B", CreatedAt: at(1), ReadBy: []string{"B"}},
	}})
	s.SetMessages(c1, []domain.Message{
		{ID: "m1", SenderID: "B", ReadBy: []string{"B"}},
		{ID: "m2", SenderID: "A"},
	})

	// the sender of the last message reading does not clear our unread count
	tr.Fire(domain.EventMessagesRead, map[string]string{"userId": "B", "chatId": "c1"})
	got, _ := s.Chat(c1)
	assert.Equal(t, 3, got.UnreadCount)
	assert.Equal(t, []string{"B"}, got.LastMessage.ReadBy)

	tr.Fire(domain.EventMessagesRead, map[string]string{"userId": "A", "chatId": "c1"})
	got, _ = s.Chat(c1)
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, []string{"B", "A"}, got.LastMessage.ReadBy)

	msgs := s.Messages(c1)
	assert.Equal(t, []string{"B", "A"}, msgs[0].ReadBy)
	assert.Equal(t, []string{"B", "A"}, msgs[1].ReadBy)

	tr.Fire(domain.EventMessagesRead, map[string]string{"userId": "A", "chatId": "c1"})
	got, _ = s.Chat(c1)
	assert.Equal(t, []string{"B", "A"}, got.LastMessage.ReadBy, "set semantics")

	// unknown chat
	tr.Fire(domain.EventMessagesRead, map[string]string{"userId": "A", "chatId": "c404"})
	assert.Len(t, s.Chats(), 1)
}

func TestChatStore_SetChatsKeepsLocalChats(t *testing.T) {
	s, _ := newConnectedStore(t, "A")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B"), durableChat("c2", "A", "C")})
	s.AddChat(participants("D"))

	s.SetChats(nil)
	assert.Equal(t, []string{"c1", "c2", "temp-A-D"}, chatIDs(s.Chats()))

	s.SetChats([]domain.Chat{durableChat("c3", "A", "E"), durableChat("c2", "A", "C")})
	assert.Equal(t, []string{"c3", "c2", "c1", "temp-A-D"}, chatIDs(s.Chats()))
}

func TestChatStore_SetChatsCollapsesProvisional(t *testing.T) {
	s, _ := newConnectedStore(t, "A")
	prov := s.AddChat(participants("D"))
	s.SetMessages(prov, []domain.Message{{ID: "m0", SenderID: "A"}})

	s.SetChats([]domain.Chat{durableChat("c4", "D", "A")})

	c4 := domain.DurableID("c4")
	assert.Equal(t, []string{"c4"}, chatIDs(s.Chats()))
	assert.Equal(t, c4, s.SelectedChatID())
	assert.Equal(t, []string{"m0"}, messageIDs(s.Messages(c4)))
	assert.False(t, s.IsFetched(c4))
	assert.False(t, s.IsFetched(prov))
}

func TestChatStore_SendMessage(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	c1 := domain.DurableID("c1")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B")})

	assert.False(t, s.SendMessage(c1, "   "))
	assert.True(t, s.SendMessage(c1, "hello"))

	prov := s.AddChat(participants("C"))
	assert.True(t, s.SendMessage(prov, "first"))
	assert.False(t, s.SendMessage(domain.DurableID("c404"), "lost"))

	sent := tr.Emitted(domain.EventSendMessage)
	require.Len(t, sent, 2)

	durable := sent[0].(domain.SendMessagePayload)
	assert.Equal(t, "c1", durable.ChatID)
	assert.Equal(t, "hello", durable.Content)
	assert.Empty(t, durable.Participants)
	assert.Empty(t, durable.ClientTempID)
	assert.NotEmpty(t, durable.ClientMessageID)

	provisional := sent[1].(domain.SendMessagePayload)
	assert.Empty(t, provisional.ChatID)
	assert.Equal(t, []string{"A", "C"}, provisional.Participants)
	assert.Equal(t, "temp-A-C", provisional.ClientTempID)
	assert.NotEqual(t, durable.ClientMessageID, provisional.ClientMessageID)

	tr.SetConnected(false)
	assert.False(t, s.SendMessage(c1, "offline"))
	assert.Len(t, tr.Emitted(domain.EventSendMessage), 2)
}

func TestChatStore_SelectionOffline(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	c1 := domain.DurableID("c1")
	chat := durableChat("c1", "A", "B")
	chat.UnreadCount = 2
	s.SetChats([]domain.Chat{chat})
	tr.SetConnected(false)

	s.SetSelectedChatID(c1)
	got, _ := s.Chat(c1)
	assert.Equal(t, c1, s.SelectedChatID())
	assert.Equal(t, 2, got.UnreadCount)
	assert.Empty(t, tr.Emitted(domain.EventMarkMessagesRead))

	tr.SetConnected(true)
	s.MarkMessagesAsRead(c1)
	got, _ = s.Chat(c1)
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, 1, markReadCount(tr, "c1"))
}

func TestChatStore_OnChangeAndTotals(t *testing.T) {
	s, tr := newConnectedStore(t, "A")
	var changes int32
	s.OnChange(func() { atomic.AddInt32(&changes, 1) })

	s.SetChats([]domain.Chat{durableChat("c1", "A", "B"), durableChat("c2", "A", "C")})
	tr.Fire(domain.EventIncomingChatMessage, incoming("c1", "m1", "B", at(1), false, ""))
	tr.Fire(domain.EventIncomingChatMessage, incoming("c2", "m2", "C", at(2), false, ""))

	assert.Equal(t, 2, s.TotalUnread())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&changes), int32(3))
}

func TestChatStore_CloseStopsTimers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, tr := newConnectedStore(t, "A", WithTypingTimeout(time.Hour))
	c1 := domain.DurableID("c1")
	s.SetChats([]domain.Chat{durableChat("c1", "A", "B")})
	s.StartTyping(c1)
	tr.Fire(domain.EventUserTyping, map[string]string{"userId": "B", "chatId": "c1"})
	require.Equal(t, 1, s.outTyping.Len())
	require.Equal(t, 1, s.inTyping.Len())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.outTyping.Len())
	assert.Equal(t, 0, s.inTyping.Len())
	assert.False(t, s.Connected())
	tr.AssertCalled(t, "Close")

	s.StartTyping(c1)
	assert.Equal(t, 0, s.outTyping.Len())
	assert.NoError(t, s.Close())
}
