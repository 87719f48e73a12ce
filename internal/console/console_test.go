package console_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/float-tracker/internal/console"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want console.Command
	}{
		{in: "s", want: console.CommandStats},
		{in: "S", want: console.CommandStats},
		{in: "  stats \r", want: console.CommandStats},
		{in: "help", want: console.CommandHelp},
		{in: "?", want: console.CommandHelp},
		{in: "quit", want: console.CommandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, console.ParseCommand(tt.in))
		})
	}
}

// scriptSource replays commands, then returns its terminal error.
type scriptSource struct {
	cmds []console.Command
	end  error
}

func (s *scriptSource) Next(context.Context) (console.Command, error) {
	if len(s.cmds) == 0 {
		return console.CommandUnknown, s.end
	}
	c := s.cmds[0]
	s.cmds = s.cmds[1:]
	return c, nil
}

func TestListen_InjectedSource(t *testing.T) {
	t.Parallel()

	src := &scriptSource{
		cmds: []console.Command{console.CommandStats, console.CommandHelp, console.CommandStats},
		end:  io.EOF,
	}
	var out bytes.Buffer
	calls := 0
	report := func() string {
		calls++
		return "REPORT"
	}

	require.NoError(t, console.Listen(context.Background(), src, &out, report, quietLogger()))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, strings.Count(out.String(), "REPORT"))
	assert.Contains(t, out.String(), "s|stats")
}

func TestListen_SourceError(t *testing.T) {
	t.Parallel()

	src := &scriptSource{end: errors.New("tty gone")}
	err := console.Listen(context.Background(), src, io.Discard, func() string { return "" }, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tty gone")
}

func TestLineSource(t *testing.T) {
	t.Parallel()

	src := console.NewLineSource(strings.NewReader("s\n\nhelp\nnope\n"))
	ctx := context.Background()

	for _, want := range []console.Command{console.CommandStats, console.CommandHelp, console.CommandUnknown} {
		got, err := src.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := src.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestLineSource_ContextCanceled(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer w.Close()

	src := console.NewLineSource(r)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListen_StopsOnCancel(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- console.Listen(ctx, console.NewLineSource(r), io.Discard, func() string { return "" }, quietLogger())
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
