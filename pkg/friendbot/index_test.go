package friendbot

import (
	"testing"
	"time"
)

func TestIndexKeyJoinsSegments(t *testing.T) {
	t.Parallel()

	index := NewIndex("guild-1", "user-2")
	if got := index.Key("state"); got != "guild-1/user-2/state" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestAddScopeDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := NewIndex("guild-1")
	child := base.AddScope("user-2")
	grandchild := child.AddScope("channel-3")

	if got := base.Key("state"); got != "guild-1/state" {
		t.Fatalf("base Key() = %q after AddScope", got)
	}
	if got := child.Key("state"); got != "guild-1/user-2/state" {
		t.Fatalf("child Key() = %q", got)
	}
	if got := grandchild.Key("state"); got != "guild-1/user-2/channel-3/state" {
		t.Fatalf("grandchild Key() = %q", got)
	}
}

func TestAddScopeSiblingsDoNotAlias(t *testing.T) {
	t.Parallel()

	base := NewIndex("guild-1", "user-2")
	first := base.AddScope("channel-a")
	second := base.AddScope("channel-b")

	if first.Key("state") == second.Key("state") {
		t.Fatal("sibling scopes produced the same key")
	}
	if got := first.Key("state"); got != "guild-1/user-2/channel-a/state" {
		t.Fatalf("first sibling Key() = %q", got)
	}
}

func TestEqualSegmentsProduceEqualKeys(t *testing.T) {
	t.Parallel()

	event := &TriggerEvent{
		GuildID:    "guild-1",
		ActorID:    "user-2",
		ChannelID:  "channel-3",
		OccurredAt: time.Now(),
	}

	if GuildScope(event).Key("x") != NewIndex("guild-1").Key("x") {
		t.Fatal("guild scope key mismatch")
	}
	if MemberScope(event).Key("x") != NewIndex("guild-1", "user-2").Key("x") {
		t.Fatal("member scope key mismatch")
	}
	if ChannelScope(event).Key("x") != NewIndex("guild-1", "user-2", "channel-3").Key("x") {
		t.Fatal("channel scope key mismatch")
	}
}
