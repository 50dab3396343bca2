package app

import (
	"exotoura_chat/internal/chat/domain"
)

// mergeParticipants keeps the order of primary and fills missing profile
// fields from fallback. With an empty primary the fallback list is used as is.
func mergeParticipants(primary, fallback []domain.Participant) []domain.Participant {
	if len(primary) == 0 {
		return domain.UniqueParticipants(fallback)
	}
	known := make(map[string]domain.Participant, len(fallback))
	for _, p := range fallback {
		known[p.ID] = p
	}

	out := domain.UniqueParticipants(primary)
	for i, p := range out {
		local, ok := known[p.ID]
		if !ok {
			continue
		}
		if p.Name == "" {
			out[i].Name = local.Name
		}
		if p.Avatar == "" {
			out[i].Avatar = local.Avatar
		}
	}
	return out
}

// retarget copies msgs under chat id
func retarget(msgs []domain.Message, id domain.ChatID) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		m = m.Clone()
		m.ChatID = id
		out = append(out, m)
	}
	return out
}

// appendUnique appends the messages whose id is not in list yet
func appendUnique(list []domain.Message, msgs ...domain.Message) []domain.Message {
	ids := make(map[string]struct{}, len(list)+len(msgs))
	for _, m := range list {
		ids[m.ID] = struct{}{}
	}
	out := append(make([]domain.Message, 0, len(list)+len(msgs)), list...)
	for _, m := range msgs {
		if _, ok := ids[m.ID]; ok && m.ID != "" {
			continue
		}
		ids[m.ID] = struct{}{}
		out = append(out, m.Clone())
	}
	return out
}

// newerSnapshot the later of cur and next; ties go to next
func newerSnapshot(cur, next *domain.LastMessage) *domain.LastMessage {
	switch {
	case cur == nil:
		return next
	case next == nil:
		return cur
	case next.CreatedAt.Before(cur.CreatedAt):
		return cur
	default:
		return next
	}
}

// applyMessage updates the list snapshot of c for msg and bumps unread unless quiet
func applyMessage(c *domain.Chat, msg domain.Message, quiet bool) {
	c.LastMessage = newerSnapshot(c.LastMessage, msg.Snapshot())
	if msg.CreatedAt.After(c.UpdatedAt) {
		c.UpdatedAt = msg.CreatedAt
	}
	if !quiet {
		c.UnreadCount++
	}
}

// mergeChatList puts page first, followed by the local chats the page does
// not carry. Provisional chats whose participant set matches a durable
// chat of the page are returned in collapse instead.
func mergeChatList(local, page []domain.Chat) (merged []domain.Chat, collapse map[domain.ChatID]domain.ChatID) {
	collapse = make(map[domain.ChatID]domain.ChatID)
	inPage := make(map[domain.ChatID]struct{}, len(page))
	byKey := make(map[string]domain.ChatID)

	merged = make([]domain.Chat, 0, len(page)+len(local))
	for _, c := range page {
		if c.ID.IsZero() {
			continue
		}
		if _, dup := inPage[c.ID]; dup {
			continue
		}
		inPage[c.ID] = struct{}{}
		if c.ID.IsDurable() && !c.IsGroup {
			if key := c.ParticipantKey(); key != "" {
				byKey[key] = c.ID
			}
		}
		merged = append(merged, c.Clone())
	}

	for _, c := range local {
		if _, ok := inPage[c.ID]; ok {
			continue
		}
		if c.ID.IsProvisional() {
			if durable, ok := byKey[c.ParticipantKey()]; ok {
				collapse[c.ID] = durable
				continue
			}
		}
		merged = append(merged, c)
	}
	return merged, collapse
}
