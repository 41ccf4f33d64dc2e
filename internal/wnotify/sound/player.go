package sound

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Config selects how sounds are played.
type Config struct {
	// Command receives the mp3 on stdin. Empty rings the terminal bell instead.
	Command string `env:"SOUND_COMMAND" envDefault:"mpg123 -q -"`
}

// NewPlayer returns a CommandPlayer for config.Command, or a BellPlayer on out
// when no command is configured.
func NewPlayer(config Config, out io.Writer) Player {
	fields := strings.Fields(config.Command)
	if len(fields) == 0 {
		return &BellPlayer{Out: out}
	}
	return &CommandPlayer{Name: fields[0], Args: fields[1:]}
}

// CommandPlayer pipes the clip into an external audio player.
type CommandPlayer struct {
	Name string
	Args []string
}

func (p *CommandPlayer) Play(ctx context.Context, _ string, mp3 []byte) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	cmd.Stdin = bytes.NewReader(mp3)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.Name, err, msg)
		}
		return fmt.Errorf("%s: %w", p.Name, err)
	}

	return nil
}

// BellPlayer rings the terminal bell and ignores the clip.
type BellPlayer struct {
	Out io.Writer
}

func (p *BellPlayer) Play(context.Context, string, []byte) error {
	if p.Out == nil {
		return errors.New("bell player has no output")
	}
	_, err := p.Out.Write([]byte("\a"))
	return err
}
