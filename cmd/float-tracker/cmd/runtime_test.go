package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls   int
	applied []string
	err     error
}

func (m *fakeMigrator) Migrate(context.Context) ([]string, error) {
	m.calls++
	return m.applied, m.err
}

func TestPrepareSchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		dryRun    bool
		err       error
		wantCalls int
		wantErr   bool
	}{
		{name: "dry run never touches the schema", dryRun: true, wantCalls: 0},
		{name: "dry run ignores a broken migrator", dryRun: true, err: errors.New("boom"), wantCalls: 0},
		{name: "normal run migrates", wantCalls: 1},
		{name: "migration failure is returned", err: errors.New("boom"), wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rt := &runtime{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
			m := &fakeMigrator{applied: []string{"001_history_documents.sql"}, err: tt.err}

			err := rt.prepareSchema(context.Background(), m, tt.dryRun)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "migrating history database")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, m.calls)
		})
	}
}
