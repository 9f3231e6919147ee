package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"friendbot/internal/voice"
	"friendbot/pkg/friendbot"
)

// SoundLibrary resolves a sound name to its audio stream.
type SoundLibrary interface {
	// Open returns the stream for name, or fs.ErrNotExist for unknown sounds.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// VoiceConnector joins or reuses a guild's voice connection.
type VoiceConnector interface {
	Connect(
		ctx context.Context,
		guildID string,
		channel friendbot.VoiceChannel,
	) (*voice.Connection, error)
}

// PlayCommand streams a named sound into the actor's voice channel, joining
// it first when the bot is not already connected.
type PlayCommand struct {
	friendbot.BaseCommand

	voice  VoiceConnector
	sounds SoundLibrary
}

// NewPlayCommand creates the play command.
func NewPlayCommand(voice VoiceConnector, sounds SoundLibrary) *PlayCommand {
	return &PlayCommand{voice: voice, sounds: sounds}
}

// Name implements friendbot.Command.
func (c *PlayCommand) Name() string {
	return "play"
}

// RequiredPermissions implements friendbot.Command.
func (c *PlayCommand) RequiredPermissions() friendbot.PermissionSet {
	return friendbot.NewPermissionSet(
		friendbot.PermissionUseCommands,
		friendbot.PermissionPlaySound,
	)
}

// Check implements friendbot.Command.
func (c *PlayCommand) Check(_ context.Context, event *friendbot.TriggerEvent) (bool, error) {
	fields := strings.Fields(event.Text)

	return len(fields) >= 1 && fields[0] == "$play", nil
}

// Execute implements friendbot.Command.
func (c *PlayCommand) Execute(ctx context.Context, event *friendbot.TriggerEvent) error {
	fields := strings.Fields(event.Text)
	if len(fields) != 2 {
		return event.Responder.Reply(ctx, "Usage: $play <sound>")
	}
	name := fields[1]

	if event.VoiceChannel == nil {
		return event.Responder.Reply(ctx, "Join a voice channel first.")
	}

	source, err := c.sounds.Open(ctx, name)
	if errors.Is(err, fs.ErrNotExist) {
		return event.Responder.Reply(ctx, fmt.Sprintf("I do not know a sound called %q.", name))
	}
	if err != nil {
		return fmt.Errorf("open sound %s: %w", name, err)
	}

	connection, err := c.voice.Connect(ctx, event.GuildID, event.VoiceChannel)
	if err != nil {
		source.Close()

		return fmt.Errorf("play %s: %w", name, err)
	}

	playback, err := connection.Play(ctx, source)
	if err != nil {
		source.Close()

		return fmt.Errorf("play %s: %w", name, err)
	}

	go func() {
		<-playback.Done()
		source.Close()
	}()

	return nil
}
