package cli

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seuros/orgoals/internal/config"
	"github.com/seuros/orgoals/internal/logging"
)

func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fnErr := fn()

	_ = w.Close()
	os.Stdout = originalStdout

	output, readErr := io.ReadAll(r)
	require.NoError(t, readErr)
	_ = r.Close()

	return string(output), fnErr
}

func testConfig() *config.Config {
	return &config.Config{
		DatabaseDriver: "postgres",
		Port:           "3000",
		Aggregation:    "sum",
		MaxDepth:       16,
	}
}

// stubBackend points every data command at one in-memory backend that lives
// for the whole test.
func stubBackend(t *testing.T, cfg *config.Config) *backend {
	t.Helper()
	restoreLog := logging.Replace(zap.NewNop())

	b, err := newBackend(cfg)
	require.NoError(t, err)
	// outlives every command in the test, so writes are kept
	b.ephemeral = false

	originalLoad := loadConfig
	originalOpen := openBackend
	loadConfig = func(string) (*config.Config, error) { return cfg, nil }
	openBackend = func(*config.Config) (*backend, error) { return b, nil }
	t.Cleanup(func() {
		loadConfig = originalLoad
		openBackend = originalOpen
		restoreLog()
	})
	return b
}

func stubTerminal(t *testing.T, tty bool) {
	t.Helper()
	original := isTerminal
	isTerminal = func() bool { return tty }
	t.Cleanup(func() { isTerminal = original })
}
