package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"inkroom/internal/apperr"
	"inkroom/internal/channel"
	"inkroom/internal/chat"
	"inkroom/internal/user"
)

// defaultInstruction is the fixed persona given to the text model. The
// model turns a raw chat transcript into a single illustration prompt.
const defaultInstruction = `You turn a chat transcript into a prompt for an illustration.
Extract the main theme and mood of the conversation, identify the people and
things discussed, and describe one concrete drawable scene that captures
them. Answer with the prompt only, in at most 150 characters, no
explanation.`

const (
	defaultCaption     = "Here is an illustration of the last few minutes:"
	defaultSystemEmail = "illustrator@inkroom.local"
	defaultSystemName  = "Illustrator"
)

// Messages is the slice of the chat service the pipeline uses: the window
// query and the same post path a human message takes.
type Messages interface {
	WindowMessages(ctx context.Context, channelID string, from, to time.Time) ([]chat.Message, error)
	PostMessage(ctx context.Context, authorID, channelID, body string, imageData *string) (*chat.Message, error)
}

type Channels interface {
	FindByName(ctx context.Context, name string) (*channel.Channel, error)
}

// Identities resolves the reserved system author, creating it on first
// use. Satisfied by the user repository.
type Identities interface {
	EnsureByEmail(ctx context.Context, email, name string) (*user.User, error)
}

type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Period      time.Duration
	ChannelName string
	Instruction string
	Caption     string
	SystemEmail string
	SystemName  string
}

// Scheduler drives one aggregation tick per period: collect the window,
// synthesize a prompt, synthesize an image, post the result through the
// normal message path. Any failure aborts the tick without partial
// persistence; the next tick starts fresh.
type Scheduler struct {
	cfg        Config
	messages   Messages
	channels   Channels
	identities Identities
	generator  Generator
	log        *slog.Logger

	// Guards against overlapping ticks; a firing that finds the lock
	// held is skipped, never queued.
	mu sync.Mutex
}

func NewScheduler(cfg Config, messages Messages, channels Channels, identities Identities, generator Generator, log *slog.Logger) *Scheduler {
	if cfg.Period <= 0 {
		cfg.Period = 5 * time.Minute
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = "general"
	}
	if cfg.Instruction == "" {
		cfg.Instruction = defaultInstruction
	}
	if cfg.Caption == "" {
		cfg.Caption = defaultCaption
	}
	if cfg.SystemEmail == "" {
		cfg.SystemEmail = defaultSystemEmail
	}
	if cfg.SystemName == "" {
		cfg.SystemName = defaultSystemName
	}
	return &Scheduler{
		cfg:        cfg,
		messages:   messages,
		channels:   channels,
		identities: identities,
		generator:  generator,
		log:        log,
	}
}

// Run fires a tick every period until the context is cancelled. Tick
// errors are logged and absorbed; the scheduler must never destabilize
// chat handling.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	s.log.Info("digest scheduler started", "period", s.cfg.Period, "channel", s.cfg.ChannelName)
	for {
		select {
		case <-ticker.C:
			if err := s.TickNow(ctx); err != nil && !apperr.IsConflict(err) {
				s.log.Error("digest tick failed", "err", err)
			}
		case <-ctx.Done():
			s.log.Info("digest scheduler stopped")
			return
		}
	}
}

// TickNow runs a single tick, returning a conflict when one is already in
// flight.
func (s *Scheduler) TickNow(ctx context.Context) error {
	if !s.mu.TryLock() {
		return apperr.Conflict("a digest tick is already in flight")
	}
	defer s.mu.Unlock()

	return s.tick(ctx, time.Now())
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) error {
	// The window comes first and the system identity last: a tick that
	// skips or fails must leave no trace, the reserved author included.
	ch, err := s.channels.FindByName(ctx, s.cfg.ChannelName)
	if err != nil {
		if apperr.IsNotFound(err) {
			s.log.Info("digest channel does not exist yet, skipping tick", "channel", s.cfg.ChannelName)
			return nil
		}
		return fmt.Errorf("resolving channel %q: %w", s.cfg.ChannelName, err)
	}

	from := now.Add(-s.cfg.Period)
	messages, err := s.messages.WindowMessages(ctx, ch.ID, from, now)
	if err != nil {
		return fmt.Errorf("collecting window: %w", err)
	}
	if len(messages) == 0 {
		s.log.Info("no messages in window, skipping tick", "from", from, "to", now)
		return nil
	}

	prompt, err := s.generator.GenerateText(ctx, s.cfg.Instruction+"\n\n"+transcript(messages))
	if err != nil {
		return fmt.Errorf("synthesizing prompt: %w", err)
	}

	image, err := s.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return fmt.Errorf("synthesizing image: %w", err)
	}

	sys, err := s.identities.EnsureByEmail(ctx, s.cfg.SystemEmail, s.cfg.SystemName)
	if err != nil {
		return fmt.Errorf("resolving system identity: %w", err)
	}

	m, err := s.messages.PostMessage(ctx, sys.ID, ch.ID, s.cfg.Caption, &image)
	if err != nil {
		return fmt.Errorf("posting digest message: %w", err)
	}

	s.log.Info("digest posted",
		"message", m.ID,
		"windowMessages", len(messages),
		"prompt", prompt,
	)
	return nil
}

// transcript renders the window as "<display-name>: <body>" lines.
func transcript(messages []chat.Message) string {
	lines := lo.Map(messages, func(m chat.Message, _ int) string {
		return m.User.DisplayName() + ": " + m.Body
	})
	return strings.Join(lines, "\n")
}
