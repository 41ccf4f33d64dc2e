// Package sound plays a notification sound when an event arrives.
package sound

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"wnotify/internal/validator"
	"wnotify/internal/wnotify"
	"wnotify/internal/wnotify/event"
)

// DefaultSound is played when no sound is named.
const DefaultSound = "select"

// Player plays an mp3 clip.
type Player interface {
	Play(ctx context.Context, name string, mp3 []byte) error
}

// Events hands out the bus for an event name.
type Events interface {
	Event(name string) *event.Bus
}

// Beeper fetches sounds from the service and plays them through a Player.
type Beeper struct {
	transport wnotify.Transport
	player    Player
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string][]byte
}

func NewBeeper(transport wnotify.Transport, player Player, logger *zap.Logger) (*Beeper, error) {
	b := Beeper{
		transport: transport,
		player:    player,
		logger:    logger,
		cache:     make(map[string][]byte),
	}

	if err := validator.Validate("beeper", b.transport, b.player, b.logger); err != nil {
		return nil, fmt.Errorf("failed to validate beeper deps: %w", err)
	}
	b.logger = b.logger.Named("sound")

	return &b, nil
}

// BeepOn registers a handler on the named event that plays sound, or
// DefaultSound when sound is empty. Playback runs in the background so a long
// clip never holds up dispatch. The handler is returned for deregistration.
func (b *Beeper) BeepOn(events Events, name, sound string) event.Handler {
	if sound == "" {
		sound = DefaultSound
	}

	h := event.Func(func(ctx context.Context, _ ...any) error {
		go func() {
			if err := b.Beep(ctx, sound); err != nil {
				b.logger.Warn("failed to play sound",
					zap.String("event", name),
					zap.String("sound", sound),
					zap.Error(err),
				)
			}
		}()
		return nil
	})
	events.Event(name).Register(h)

	return h
}

// Beep fetches sound, once per name, and plays it.
func (b *Beeper) Beep(ctx context.Context, sound string) error {
	clip, err := b.fetch(ctx, sound)
	if err != nil {
		return err
	}

	if err := b.player.Play(ctx, sound, clip); err != nil {
		return fmt.Errorf("failed to play sound %s: %w", sound, err)
	}

	return nil
}

func (b *Beeper) fetch(ctx context.Context, sound string) ([]byte, error) {
	b.mu.Lock()
	clip, ok := b.cache[sound]
	b.mu.Unlock()
	if ok {
		return clip, nil
	}

	clip, err := b.transport.Get(ctx, wnotify.SoundPath(sound), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sound %s: %w", sound, err)
	}

	b.mu.Lock()
	b.cache[sound] = clip
	b.mu.Unlock()

	return clip, nil
}
