package friendbot

import (
	"context"
	"io"
)

// VoiceChannel is an opaque join target provided by the platform collaborator.
// The connection manager never interprets it beyond calling Join.
type VoiceChannel interface {
	// ID returns the platform identifier of the channel.
	ID() string
	// Join establishes a live voice session in the channel.
	Join(ctx context.Context) (VoiceSession, error)
}

// VoiceSession is one live platform voice session.
type VoiceSession interface {
	// Play starts streaming source into the session.
	Play(ctx context.Context, source io.Reader) (Playback, error)
	// Disconnect tears the session down.
	Disconnect(ctx context.Context) error
}

// Playback is one in-progress play operation on a voice session.
type Playback interface {
	// Done is closed when the playback finishes or is stopped.
	Done() <-chan struct{}
	// Stop aborts the playback. Stopping a finished playback is a no-op.
	Stop()
}
