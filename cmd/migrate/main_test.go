package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd(&options{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		out, err := execute(t, "list", "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, out, "000001_create_documents\n")
	})

	t.Run("directory", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
		}
		out, err := execute(t, "list", "--path", dir)
		require.NoError(t, err)
		assert.Equal(t, "000001_a\n000002_b\n", out)
	})
}

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "step needs a count", args: []string{"step"}, wantErr: "accepts 1 arg(s)"},
		{name: "step count must be numeric", args: []string{"step", "two"}, wantErr: `"two" is not an integer`},
		{name: "force needs a version", args: []string{"force"}, wantErr: "accepts 1 arg(s)"},
		{name: "up takes no arguments", args: []string{"up", "now"}, wantErr: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
