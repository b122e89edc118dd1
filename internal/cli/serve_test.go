package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskclock/internal/ai"
	"github.com/mrz1836/taskclock/internal/board"
	"github.com/mrz1836/taskclock/internal/config"
	"github.com/mrz1836/taskclock/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Store.Path = filepath.Join(t.TempDir(), "tasks.json")
	cfg.Timer.TickInterval = 10 * time.Millisecond
	cfg.AI.Enabled = false
	return cfg
}

func writeRaw(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestNewApp_ResumesPersistedCountdowns(t *testing.T) {
	isolate(t)
	cfg := testConfig(t)
	seedStore(t, cfg.Store.Path, domain.TaskList{
		{ID: 1, Title: "running", Duration: 1, IsTiming: true, TimeRemaining: 3},
		{ID: 2, Title: "idle"},
	})

	ctx := context.Background()
	a, err := newApp(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.reg.Shutdown(ctx) })

	require.Eventually(t, func() bool {
		tasks, err := a.store.Load(ctx)
		if err != nil {
			return false
		}
		task := tasks.Find(1)
		return task != nil && !task.IsTiming && task.TimeRemaining == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, a.reg.Running(1))
}

func TestNewApp_CorruptStoreStillStarts(t *testing.T) {
	isolate(t)
	cfg := testConfig(t)
	require.NoError(t, writeRaw(cfg.Store.Path, "[{broken"))

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, a.reg.Len())
}

func TestApp_ServeAndShutdown(t *testing.T) {
	isolate(t)
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", cfg.Server.Address)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln, nil) }()

	url := fmt.Sprintf("http://%s/healthz", ln.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test helper
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()

		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		return resp.StatusCode == http.StatusOK && body["status"] == "ok"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	_, err = a.reg.Reconcile(context.Background())
	require.Error(t, err, "registry is closed after shutdown")
}

func TestApp_ServeReturnsListenerErrors(t *testing.T) {
	isolate(t)
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", cfg.Server.Address)
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	err = a.serve(context.Background(), ln, nil)
	require.Error(t, err)
}

func TestNewNotifier(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.IsType(t, board.NopNotifier{}, newNotifier(cfg.Board, zerolog.Nop()))

	cfg.Board.Enabled = true
	assert.IsType(t, &board.SerialNotifier{}, newNotifier(cfg.Board, zerolog.Nop()))
}

func TestNewSuggester(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AI.APIKeyEnvVar = "TASKCLOCK_TEST_AI_KEY"

	t.Setenv("TASKCLOCK_TEST_AI_KEY", "")
	assert.IsType(t, ai.NopSuggester{}, newSuggester(cfg.AI, zerolog.Nop()), "no key")

	t.Setenv("TASKCLOCK_TEST_AI_KEY", "sk-test")
	assert.IsType(t, &ai.ChatClient{}, newSuggester(cfg.AI, zerolog.Nop()))

	cfg.AI.Enabled = false
	assert.IsType(t, ai.NopSuggester{}, newSuggester(cfg.AI, zerolog.Nop()), "disabled")
}
