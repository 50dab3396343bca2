package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"exotoura_chat/internal/chat/app"
	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/internal/chat/repository"
	"exotoura_chat/pkg/logger"

	"go.uber.org/zap"
)

const helpText = `commands:
  /chats            list chats
  /open <chat id>   load the history and select the chat
  /new <user ...>   start a chat with the users
  /typing           announce typing in the selected chat
  /connect          retry the gateway connection
  /quit             exit
any other line is sent to the selected chat`

type identity interface {
	CurrentUserID() string
}

// console line-oriented front end over a ChatStore
type console struct {
	store *app.ChatStore
	api   repository.ChatAPI
	cache *repository.ChatCache
	me    identity

	mu      sync.Mutex
	out     io.Writer
	printed map[string]struct{}
	unread  int
	typing  string
}

func newConsole(store *app.ChatStore, api repository.ChatAPI, cache *repository.ChatCache, me identity, out io.Writer) *console {
	return &console{
		store:   store,
		api:     api,
		cache:   cache,
		me:      me,
		out:     out,
		printed: make(map[string]struct{}),
	}
}

func (c *console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

// loadChats shows the cached list first, then replaces it with the server page
func (c *console) loadChats(ctx context.Context) {
	userID := c.me.CurrentUserID()
	if cached, err := c.cache.Load(ctx, userID); err != nil {
		logger.Log.Warn("chat cache load", zap.Error(err))
	} else if len(cached) > 0 {
		c.store.SetChats(cached)
	}

	chats, err := c.api.FetchChats(ctx)
	if err != nil {
		c.printf("! could not fetch chats: %v", err)
		return
	}
	c.store.SetChats(chats)

	if len(chats) == 0 {
		err = c.cache.Invalidate(ctx, userID)
	} else {
		err = c.cache.Save(ctx, userID, c.store.Chats())
	}
	if err != nil {
		logger.Log.Warn("chat cache update", zap.String("user_id", userID), zap.Error(err))
	}
}

// readLoop runs the lines of in until /quit, EOF or ctx ends. A Scan blocked
// on in is only released by closing it, so in is closed on return when it is
// an io.Closer; otherwise the scanner goroutine stays parked until exit.
func (c *console) readLoop(ctx context.Context, in io.Reader) error {
	done := make(chan struct{})
	defer close(done)
	if closer, ok := in.(io.Closer); ok {
		defer closer.Close()
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if !c.handleLine(ctx, line) {
				return nil
			}
		}
	}
}

// handleLine runs one command; false ends the session
func (c *console) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		c.send(line)
		return true
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return false
	case "/help":
		c.printf("%s", helpText)
	case "/chats":
		c.listChats()
		if err := c.cache.Touch(ctx, c.me.CurrentUserID()); err != nil {
			logger.Log.Warn("chat cache touch", zap.Error(err))
		}
	case "/open":
		if len(fields) != 2 {
			c.printf("usage: /open <chat id>")
			return true
		}
		c.open(ctx, domain.ParseChatID(fields[1]))
	case "/new":
		if len(fields) < 2 {
			c.printf("usage: /new <user ...>")
			return true
		}
		ps := make([]domain.Participant, 0, len(fields)-1)
		for _, id := range fields[1:] {
			ps = append(ps, domain.Participant{ID: id})
		}
		id := c.store.AddChat(ps)
		c.printf("chat %s selected", id)
	case "/typing":
		c.store.StartTyping(c.store.SelectedChatID())
	case "/connect":
		c.store.InitializeSocket(ctx)
		c.printf("connected: %t", c.store.Connected())
	default:
		c.printf("unknown command %s, try /help", fields[0])
	}
	return true
}

func (c *console) send(content string) {
	id := c.store.SelectedChatID()
	if id.IsZero() {
		c.printf("! no chat selected, use /open or /new")
		return
	}
	if !c.store.SendMessage(id, content) {
		c.printf("! not sent, gateway offline")
	}
}

func (c *console) open(ctx context.Context, id domain.ChatID) {
	if _, ok := c.store.Chat(id); !ok {
		c.printf("! unknown chat %s", id)
		return
	}
	if !c.store.IsFetched(id) {
		msgs, err := c.api.FetchMessages(ctx, id)
		if err != nil {
			c.printf("! could not load history: %v", err)
			return
		}
		c.store.SetMessages(id, msgs)
	}
	c.store.SetSelectedChatID(id)
	c.render()
}

func (c *console) listChats() {
	selected := c.store.SelectedChatID()
	for _, ch := range c.store.Chats() {
		mark := " "
		if ch.ID == selected {
			mark = "*"
		}
		c.printf("%s %-28s %-24s unread %d", mark, ch.ID, c.title(ch), ch.UnreadCount)
	}
}

func (c *console) title(ch domain.Chat) string {
	if ch.IsGroup && ch.GroupName != "" {
		return ch.GroupName
	}
	me := c.me.CurrentUserID()
	var names []string
	for _, p := range ch.Participants {
		if p.ID == me {
			continue
		}
		if p.Name != "" {
			names = append(names, p.Name)
		} else {
			names = append(names, p.ID)
		}
	}
	return strings.Join(names, ", ")
}

// render prints unseen messages of the selected chat and unread changes
func (c *console) render() {
	id := c.store.SelectedChatID()
	msgs := c.store.Messages(id)
	total := c.store.TotalUnread()
	typing := c.store.TypingUsers(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		if _, ok := c.printed[m.ID]; ok {
			continue
		}
		c.printed[m.ID] = struct{}{}
		fmt.Fprintf(c.out, "[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.SenderID, m.Content)
	}
	if total != c.unread {
		c.unread = total
		fmt.Fprintf(c.out, "(unread %d)\n", total)
	}
	if who := strings.Join(typing, ", "); who != c.typing {
		c.typing = who
		if who != "" {
			fmt.Fprintf(c.out, "(%s typing)\n", who)
		}
	}
}
