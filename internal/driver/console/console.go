// Package console is a terminal-backed driver for local development and
// smoke testing: every line read from input becomes a trigger event in a
// synthetic guild, and replies are printed back to output.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"friendbot/pkg/friendbot"
)

const (
	defaultGuildID   = "console"
	defaultChannelID = "terminal"
	defaultActorID   = "operator"
)

// Driver implements friendbot.Driver over a line-oriented reader and writer.
type Driver struct {
	input  io.Reader
	output io.Writer
	logger *slog.Logger

	guildID   string
	channelID string
	actorID   string
	admin     bool

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// Option mutates driver construction.
type Option func(*Driver)

// WithLogger injects the driver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(driver *Driver) {
		if logger != nil {
			driver.logger = logger
		}
	}
}

// WithActor overrides the synthetic actor identity for published events.
func WithActor(actorID string, admin bool) Option {
	return func(driver *Driver) {
		if actorID != "" {
			driver.actorID = actorID
		}
		driver.admin = admin
	}
}

// WithGuild overrides the synthetic guild and channel identifiers.
func WithGuild(guildID, channelID string) Option {
	return func(driver *Driver) {
		if guildID != "" {
			driver.guildID = guildID
		}
		if channelID != "" {
			driver.channelID = channelID
		}
	}
}

// New creates a console driver reading from input and replying to output.
func New(input io.Reader, output io.Writer, options ...Option) *Driver {
	driver := &Driver{
		input:     input,
		output:    output,
		logger:    slog.Default(),
		guildID:   defaultGuildID,
		channelID: defaultChannelID,
		actorID:   defaultActorID,
		shutdown:  make(chan struct{}),
	}
	for _, option := range options {
		option(driver)
	}

	return driver
}

// Name implements friendbot.Driver.
func (d *Driver) Name() string {
	return "console"
}

// Start implements friendbot.Driver. It returns on input EOF, context
// cancellation, or Shutdown; read errors other than EOF are fatal.
func (d *Driver) Start(ctx context.Context, sink friendbot.EventSink) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(d.input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			case <-d.shutdown:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.shutdown:
			return nil
		case line, open := <-lines:
			if !open {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read console input: %w", err)
					}
				default:
				}

				return nil
			}
			d.publish(ctx, sink, line)
		}
	}
}

// Shutdown implements friendbot.Driver.
func (d *Driver) Shutdown(context.Context) error {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)
	})

	return nil
}

// publish converts one input line into a trigger event.
func (d *Driver) publish(ctx context.Context, sink friendbot.EventSink, line string) {
	text := strings.TrimSpace(line)
	if text == "" {
		return
	}

	event := &friendbot.TriggerEvent{
		GuildID:      d.guildID,
		ActorID:      d.actorID,
		ChannelID:    d.channelID,
		Text:         text,
		Mentions:     parseMentions(text),
		ActorIsAdmin: d.admin,
		OccurredAt:   time.Now(),
		Responder:    &consoleResponder{output: d.output},
	}

	if err := sink.Dispatch(ctx, event); err != nil {
		d.logger.Error("dispatch console event failed", "error", err)
	}
}

// parseMentions extracts @name tokens in order of appearance.
func parseMentions(text string) []string {
	var mentions []string
	for _, field := range strings.Fields(text) {
		if name := strings.TrimPrefix(field, "@"); name != field && name != "" {
			mentions = append(mentions, name)
		}
	}

	return mentions
}

// consoleResponder prints reply and reaction side effects to the output.
type consoleResponder struct {
	output io.Writer
	mu     sync.Mutex
}

func (r *consoleResponder) Reply(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := fmt.Fprintln(r.output, text); err != nil {
		return fmt.Errorf("write console reply: %w", err)
	}

	return nil
}

func (r *consoleResponder) React(_ context.Context, emoji string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := fmt.Fprintf(r.output, "* reacted with %s *\n", emoji); err != nil {
		return fmt.Errorf("write console reaction: %w", err)
	}

	return nil
}
