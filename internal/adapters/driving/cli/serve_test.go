package cli

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockScheduler struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped.Store(true)
	return nil
}

func TestServeCmd_RunsUntilCancelled(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	scheduler := &mockScheduler{}
	origBootstrap := bootstrap
	bootstrap = func(ctx context.Context, dir string) (*Services, error) {
		svc, err := origBootstrap(ctx, dir)
		if err != nil {
			return nil, err
		}
		svc.Scheduler = scheduler
		return svc, nil
	}

	ts.settings.Server.Addr = "127.0.0.1:0"
	ts.settings.Index.Watch = true // no database path: watching is skipped

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve"})
	defer rootCmd.SetArgs(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	require.Eventually(t, scheduler.started.Load, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
	assert.Equal(t, 1, ts.index.rebuilds, "rebuild_on_start builds once")
	assert.True(t, scheduler.stopped.Load())
	assert.Contains(t, buf.String(), "listening on 127.0.0.1:0")
}

func TestServeCmd_HasAddrFlag(t *testing.T) {
	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
}

func TestMCPCmd_HasHTTPFlag(t *testing.T) {
	flag := mcpCmd.Flags().Lookup("http")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
}
