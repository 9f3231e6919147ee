package commands

import (
	"context"
	"sync"
	"time"

	"friendbot/pkg/friendbot"
)

// replyRecorder captures reply and reaction side effects for assertions.
type replyRecorder struct {
	mu        sync.Mutex
	replies   []string
	reactions []string
}

func (r *replyRecorder) Reply(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)

	return nil
}

func (r *replyRecorder) React(_ context.Context, emoji string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reactions = append(r.reactions, emoji)

	return nil
}

func (r *replyRecorder) lastReply() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.replies) == 0 {
		return ""
	}

	return r.replies[len(r.replies)-1]
}

func (r *replyRecorder) replyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.replies)
}

func newEvent(text string, rec *replyRecorder) *friendbot.TriggerEvent {
	return &friendbot.TriggerEvent{
		GuildID:    "guild",
		ActorID:    "actor",
		ChannelID:  "channel",
		Text:       text,
		OccurredAt: time.Now(),
		Responder:  rec,
	}
}
