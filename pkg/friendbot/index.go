package friendbot

import "strings"

// indexSeparator joins index segments into storage keys. Platform identifiers
// are numeric snowflakes and key names are bare identifiers, so "/" cannot
// appear inside a segment.
const indexSeparator = "/"

// Index is an immutable hierarchical path used to namespace cache entries.
//
// Indexes are cheap values constructed fresh per scope (guild, guild+member,
// guild+member+channel) at the start of a request and discarded afterwards.
type Index struct {
	path []string
}

// NewIndex creates an index rooted at the provided segments.
func NewIndex(segments ...string) Index {
	path := make([]string, len(segments))
	copy(path, segments)

	return Index{path: path}
}

// AddScope returns a new index with one extra trailing segment.
// The receiver is never mutated.
func (i Index) AddScope(segment string) Index {
	path := make([]string, 0, len(i.path)+1)
	path = append(path, i.path...)
	path = append(path, segment)

	return Index{path: path}
}

// Key joins the index segments and the entry name into one storage key.
// Two indexes holding identical segment sequences produce identical keys.
func (i Index) Key(name string) string {
	parts := make([]string, 0, len(i.path)+1)
	parts = append(parts, i.path...)
	parts = append(parts, name)

	return strings.Join(parts, indexSeparator)
}

// GuildScope creates an index namespaced to the event's guild.
func GuildScope(event *TriggerEvent) Index {
	return NewIndex(event.GuildID)
}

// MemberScope creates an index namespaced to the event's guild and actor.
func MemberScope(event *TriggerEvent) Index {
	return NewIndex(event.GuildID, event.ActorID)
}

// ChannelScope creates an index namespaced to the event's guild, actor, and channel.
//
// Per-channel scoping keeps concurrent multi-turn flows from colliding when the
// same member runs a flow in two channels at once.
func ChannelScope(event *TriggerEvent) Index {
	return NewIndex(event.GuildID, event.ActorID, event.ChannelID)
}
