// Package voice owns one live voice connection per guild: joining, activity
// tracking, idle teardown, and disconnect notification.
package voice

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"friendbot/internal/schedule"
	"friendbot/pkg/friendbot"
)

// Connection wraps a platform voice session with activity tracking. The idle
// watchdog is stopped while any playback is active and re-armed from zero
// when the last one ends.
type Connection struct {
	guildID   string
	channelID string
	session   friendbot.VoiceSession
	watchdog  *schedule.Timer

	mu           sync.Mutex
	active       int
	lastActivity time.Time
}

func newConnection(
	guildID string,
	channelID string,
	session friendbot.VoiceSession,
	idleTimeout time.Duration,
	onIdle func(),
) *Connection {
	connection := &Connection{
		guildID:      guildID,
		channelID:    channelID,
		session:      session,
		lastActivity: time.Now(),
	}
	connection.watchdog = schedule.New(idleTimeout, onIdle)

	return connection
}

// startWatchdog arms the idle teardown timer.
func (c *Connection) startWatchdog() {
	c.watchdog.Start()
}

// GuildID returns the guild this connection serves.
func (c *Connection) GuildID() string {
	return c.guildID
}

// ChannelID returns the joined voice channel.
func (c *Connection) ChannelID() string {
	return c.channelID
}

// Play streams source through the session and tracks the playback as
// activity until it finishes or is stopped.
func (c *Connection) Play(ctx context.Context, source io.Reader) (friendbot.Playback, error) {
	c.beginActivity()

	playback, err := c.session.Play(ctx, source)
	if err != nil {
		c.endActivity()

		return nil, fmt.Errorf("play on guild %s: %w", c.guildID, err)
	}

	go func() {
		<-playback.Done()
		c.endActivity()
	}()

	return playback, nil
}

// LastActivity returns the current time while any playback is active, and the
// end of the most recent one otherwise.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active > 0 {
		return time.Now()
	}

	return c.lastActivity
}

// Active reports whether any playback is in progress.
func (c *Connection) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.active > 0
}

func (c *Connection) beginActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active++
	if c.active == 1 {
		c.watchdog.Stop()
	}
}

func (c *Connection) endActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == 0 {
		return
	}
	c.active--
	if c.active == 0 {
		c.lastActivity = time.Now()
		c.watchdog.Reset()
	}
}

// stopWatchdog prevents any further idle teardown for this connection.
func (c *Connection) stopWatchdog() {
	c.watchdog.Stop()
}
