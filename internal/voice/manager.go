package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"friendbot/pkg/friendbot"
)

const defaultIdleTimeout = 5 * time.Minute

// Manager maintains at most one live voice connection per guild. Idle
// connections are torn down automatically, and disconnect subscribers are
// notified exactly once per connection regardless of why it ended.
type Manager struct {
	idleTimeout time.Duration
	logger      *slog.Logger

	joins singleflight.Group

	mu          sync.Mutex
	connections map[string]*Connection
	subscribers map[string][]func()
}

// ManagerOption mutates manager construction.
type ManagerOption func(*Manager)

// WithIdleTimeout overrides how long a silent connection survives.
func WithIdleTimeout(timeout time.Duration) ManagerOption {
	return func(manager *Manager) {
		if timeout > 0 {
			manager.idleTimeout = timeout
		}
	}
}

// WithManagerLogger injects the manager logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(manager *Manager) {
		if logger != nil {
			manager.logger = logger
		}
	}
}

// NewManager creates a manager with no live connections.
func NewManager(options ...ManagerOption) *Manager {
	manager := &Manager{
		idleTimeout: defaultIdleTimeout,
		logger:      slog.Default(),
		connections: make(map[string]*Connection),
		subscribers: make(map[string][]func()),
	}
	for _, option := range options {
		option(manager)
	}

	return manager
}

// Connect returns the guild's live connection, joining channel first when
// there is none. Concurrent connects for the same guild share one join; a
// failed join leaves no tracked connection behind.
func (m *Manager) Connect(
	ctx context.Context,
	guildID string,
	channel friendbot.VoiceChannel,
) (*Connection, error) {
	if channel == nil {
		return nil, fmt.Errorf("connect guild %s: %w", guildID, friendbot.ErrValidation)
	}

	result, err, _ := m.joins.Do(guildID, func() (any, error) {
		m.mu.Lock()
		existing, connected := m.connections[guildID]
		m.mu.Unlock()
		if connected {
			return existing, nil
		}

		session, err := channel.Join(ctx)
		if err != nil {
			return nil, fmt.Errorf("join channel %s: %w", channel.ID(), err)
		}

		var connection *Connection
		connection = newConnection(guildID, channel.ID(), session, m.idleTimeout, func() {
			m.idleDisconnect(guildID, connection)
		})

		m.mu.Lock()
		m.connections[guildID] = connection
		m.mu.Unlock()
		connection.startWatchdog()

		m.logger.Info("voice connected", "guild_id", guildID, "channel_id", channel.ID())

		return connection, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect guild %s: %w", guildID, err)
	}

	return result.(*Connection), nil
}

// Connection returns the guild's live connection or ErrNotConnected.
func (m *Manager) Connection(guildID string) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	connection, connected := m.connections[guildID]
	if !connected {
		return nil, fmt.Errorf("connection for guild %s: %w", guildID, friendbot.ErrNotConnected)
	}

	return connection, nil
}

// Connected reports whether the guild has a live connection.
func (m *Manager) Connected(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, connected := m.connections[guildID]

	return connected
}

// OnDisconnect registers a callback fired once when the guild's connection
// ends for any reason. Callbacks do not survive the disconnect that fires
// them.
func (m *Manager) OnDisconnect(guildID string, callback func()) {
	if callback == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.subscribers[guildID] = append(m.subscribers[guildID], callback)
}

// Disconnect tears down the guild's connection and fires its subscribers.
// Disconnecting a guild with no live connection is a no-op.
func (m *Manager) Disconnect(ctx context.Context, guildID string) error {
	connection, subscribers, removed := m.remove(guildID, nil)
	if !removed {
		return nil
	}

	connection.stopWatchdog()

	err := connection.session.Disconnect(ctx)
	if err != nil {
		err = fmt.Errorf("disconnect guild %s: %w", guildID, err)
	}

	for _, callback := range subscribers {
		callback()
	}

	m.logger.Info("voice disconnected", "guild_id", guildID, "channel_id", connection.ChannelID())

	return err
}

// DisconnectAll tears down every live connection, in stable guild order.
func (m *Manager) DisconnectAll(ctx context.Context) error {
	m.mu.Lock()
	guilds := make([]string, 0, len(m.connections))
	for guildID := range m.connections {
		guilds = append(guilds, guildID)
	}
	m.mu.Unlock()
	sort.Strings(guilds)

	var errs []error
	for _, guildID := range guilds {
		if err := m.Disconnect(ctx, guildID); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// idleDisconnect is the watchdog path. The tracked connection may have been
// replaced or become active again since the timer fired, so both are
// re-checked before teardown.
func (m *Manager) idleDisconnect(guildID string, stale *Connection) {
	if stale.Active() {
		return
	}

	connection, subscribers, removed := m.remove(guildID, stale)
	if !removed {
		return
	}

	m.logger.Info("disconnecting idle voice connection",
		"guild_id", guildID, "channel_id", connection.ChannelID())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connection.stopWatchdog()
	if err := connection.session.Disconnect(ctx); err != nil {
		m.logger.Error("idle disconnect failed", "guild_id", guildID, "error", err)
	}

	for _, callback := range subscribers {
		callback()
	}
}

// remove untracks the guild's connection before any teardown side effect so a
// racing Connect observes the guild as already disconnected. When expect is
// non-nil, removal only happens if it is still the tracked connection.
func (m *Manager) remove(guildID string, expect *Connection) (*Connection, []func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	connection, connected := m.connections[guildID]
	if !connected || (expect != nil && connection != expect) {
		return nil, nil, false
	}
	delete(m.connections, guildID)
	subscribers := m.subscribers[guildID]
	delete(m.subscribers, guildID)

	return connection, subscribers, true
}
