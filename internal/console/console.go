// Package console reads operator commands from an interactive source and
// prints reports in response.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Command is an operator request.
type Command int

// Commands.
const (
	CommandUnknown Command = iota
	CommandStats
	CommandHelp
)

// ParseCommand maps an input line to a Command. Matching ignores case and
// surrounding whitespace.
func ParseCommand(line string) Command {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "stats":
		return CommandStats
	case "h", "help", "?":
		return CommandHelp
	default:
		return CommandUnknown
	}
}

// CommandSource yields commands until it is exhausted (io.EOF) or ctx is
// done.
type CommandSource interface {
	Next(ctx context.Context) (Command, error)
}

// LineSource reads one command per line from an io.Reader.
type LineSource struct {
	lines chan string
	errs  chan error
	done  chan struct{}
	once  sync.Once

	// stopped closes when the reader goroutine returns.
	stopped chan struct{}
}

// NewLineSource starts reading r in the background. Reading stops at EOF,
// the first read error, or Close.
func NewLineSource(r io.Reader) *LineSource {
	s := &LineSource{
		lines:   make(chan string),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go func() {
		defer close(s.stopped)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case s.lines <- sc.Text():
			case <-s.done:
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		s.errs <- err
	}()
	return s
}

// Next implements CommandSource. Blank lines are skipped.
func (s *LineSource) Next(ctx context.Context) (Command, error) {
	for {
		select {
		case <-ctx.Done():
			return CommandUnknown, ctx.Err()
		case line := <-s.lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			return ParseCommand(line), nil
		case err := <-s.errs:
			return CommandUnknown, err
		}
	}
}

// Close stops delivering lines. The reader goroutine exits once its pending
// read returns.
func (s *LineSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// ReportFunc renders the stats report.
type ReportFunc func() string

const helpText = "commands: s|stats  show the last 24h statistics\n"

// Listen answers commands from src on w until src is exhausted or ctx is
// done. It is meant to run on its own goroutine.
func Listen(ctx context.Context, src CommandSource, w io.Writer, report ReportFunc, log *slog.Logger) error {
	for {
		cmd, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error("console input failed", "error", err)
			return fmt.Errorf("reading console command: %w", err)
		}

		switch cmd {
		case CommandStats:
			_, err = fmt.Fprintln(w, "\n"+report())
		case CommandHelp:
			_, err = fmt.Fprint(w, helpText)
		default:
			log.Debug("unknown console command")
			_, err = fmt.Fprint(w, helpText)
		}
		if err != nil {
			return fmt.Errorf("writing console output: %w", err)
		}
	}
}
