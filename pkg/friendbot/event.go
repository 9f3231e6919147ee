package friendbot

import (
	"context"
	"fmt"
	"time"
)

// TriggerEvent is the neutral inbound payload that drivers publish and the
// dispatch pipeline consumes. Candidates receive it read-only except for the
// documented reply/react side effects on Responder.
type TriggerEvent struct {
	// ID is a stable identifier for this event instance. The pipeline assigns
	// one when a driver leaves it empty.
	ID string
	// GuildID identifies the guild the trigger originated in.
	GuildID string
	// ActorID identifies the member that produced the trigger.
	ActorID string
	// ChannelID identifies the text channel the trigger was posted in.
	ChannelID string
	// Text is the raw trigger text content.
	Text string
	// Mentions lists identifiers of members referenced by the trigger.
	Mentions []string
	// ActorIsBot reports whether the actor is an automated account.
	ActorIsBot bool
	// ActorIsAdmin reports whether the actor holds a platform-level
	// administrative override that bypasses permission gating.
	ActorIsAdmin bool
	// VoiceChannel is the actor's current voice channel when known, usable as
	// a join target for the connection manager.
	VoiceChannel VoiceChannel
	// OccurredAt is the source-platform timestamp for the trigger.
	OccurredAt time.Time
	// Responder performs reply/react side effects in the originating context.
	Responder Responder
}

// Responder performs user-visible side effects on a trigger's origin.
type Responder interface {
	// Reply posts a message in the channel the trigger came from.
	Reply(ctx context.Context, text string) error
	// React attaches an emoji reaction to the triggering message.
	React(ctx context.Context, emoji string) error
}

// Validate checks trigger event contract fields.
func (e *TriggerEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("validate trigger event: nil event")
	}
	if e.GuildID == "" {
		return fmt.Errorf("validate trigger event: missing guild id")
	}
	if e.ActorID == "" {
		return fmt.Errorf("validate trigger event: missing actor id")
	}
	if e.ChannelID == "" {
		return fmt.Errorf("validate trigger event: missing channel id")
	}
	if e.Responder == nil {
		return fmt.Errorf("validate trigger event: missing responder")
	}

	return nil
}
