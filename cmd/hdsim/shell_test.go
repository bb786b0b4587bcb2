package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/hdsim/internal/config"
	"codeberg.org/mutker/hdsim/internal/dispatch"
	"codeberg.org/mutker/hdsim/internal/fault"
	"codeberg.org/mutker/hdsim/internal/hds"
	"codeberg.org/mutker/hdsim/internal/journal"
	"codeberg.org/mutker/hdsim/internal/logger"
	"codeberg.org/mutker/hdsim/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func noopJournal(t *testing.T) journal.Recorder {
	t.Helper()
	rec, err := journal.NewService(journal.DefaultConfig(), logger.Default())
	require.NoError(t, err)
	return rec
}

func newTestShell(t *testing.T, rec journal.Recorder) (*shell, *dispatch.Dispatcher, *bytes.Buffer) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := hds.New(srv.URL)
	require.NoError(t, err)

	r := relay.New()
	disp := dispatch.New(client, fault.NewBuilder("Application B"), r)

	var out bytes.Buffer
	sh := newShell(&out, disp, rec, r.Notify(), 10*time.Millisecond)
	sh.color = false
	return sh, disp, &out
}

func waitIdle(t *testing.T, disp *dispatch.Dispatcher) {
	t.Helper()
	require.Eventually(t, func() bool { return disp.InFlight() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestShellTriggersAndRendersOutcomes(t *testing.T) {
	sh, disp, out := newTestShell(t, noopJournal(t))
	ctx := context.Background()

	_, err := disp.Register(ctx, "Application B", "1.0.0")
	require.NoError(t, err)
	waitIdle(t, disp)

	assert.True(t, sh.handle(ctx, "watchdog-timeout"))
	waitIdle(t, disp)
	sh.drain(ctx)

	text := out.String()
	assert.Contains(t, text, "Caught exception: simulated watchdog timeout")
	assert.Contains(t, text, "REGISTER OK:")
	assert.Contains(t, text, "Outgoing Fault:")
	assert.Contains(t, text, "F01A")
	assert.Contains(t, text, "FAULT OK:")
}

func TestShellRefusesFaultBeforeRegistration(t *testing.T) {
	sh, _, out := newTestShell(t, noopJournal(t))

	assert.True(t, sh.handle(context.Background(), "2"))
	assert.NotContains(t, out.String(), "Caught exception")
	assert.Contains(t, out.String(), "Cannot report out-of-range, nothing sent")
}

func TestShellQuietAfterShutdown(t *testing.T) {
	sh, disp, out := newTestShell(t, noopJournal(t))
	ctx := context.Background()

	_, err := disp.Register(ctx, "Application B", "1.0.0")
	require.NoError(t, err)
	require.NoError(t, disp.Shutdown(ctx))
	out.Reset()

	assert.True(t, sh.handle(ctx, "null-pointer"))
	assert.NotContains(t, out.String(), "Caught exception")
}

func TestShellCommands(t *testing.T) {
	sh, _, out := newTestShell(t, noopJournal(t))
	ctx := context.Background()

	assert.True(t, sh.handle(ctx, "   "))
	assert.Empty(t, out.String())

	assert.True(t, sh.handle(ctx, "help"))
	assert.Contains(t, out.String(), "Commands:")

	out.Reset()
	assert.True(t, sh.handle(ctx, "list"))
	for _, c := range fault.Categories() {
		assert.Contains(t, out.String(), c.String())
		assert.Contains(t, out.String(), c.Exception())
	}

	out.Reset()
	assert.True(t, sh.handle(ctx, "reboot"))
	assert.Contains(t, out.String(), `Unknown command "reboot"`)

	out.Reset()
	assert.True(t, sh.handle(ctx, "history"))
	assert.Contains(t, out.String(), "No journal history")

	out.Reset()
	assert.True(t, sh.handle(ctx, "history zero"))
	assert.Contains(t, out.String(), "history takes a positive count")

	assert.False(t, sh.handle(ctx, "quit"))
	assert.False(t, sh.handle(ctx, "EXIT"))
}

func TestShellHistoryFromJournal(t *testing.T) {
	rec, err := journal.NewService(journal.Config{
		DBPath:    filepath.Join(t.TempDir(), "journal.db"),
		BatchSize: 16,
		Enabled:   true,
	}, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	sh, disp, out := newTestShell(t, rec)
	ctx := context.Background()

	_, err = disp.Register(ctx, "Application B", "1.0.0")
	require.NoError(t, err)
	waitIdle(t, disp)
	sh.drain(ctx)

	out.Reset()
	assert.True(t, sh.handle(ctx, "history 5"))
	assert.Contains(t, out.String(), "REGISTER OK:")
}

func TestShellRunStopsOnQuit(t *testing.T) {
	sh, _, out := newTestShell(t, noopJournal(t))

	lines := make(chan string, 2)
	lines <- "help"
	lines <- "quit"

	require.NoError(t, sh.run(context.Background(), lines, nil))
	assert.Contains(t, out.String(), "Commands:")
}

func TestShellRunStopsAtEndOfInput(t *testing.T) {
	sh, _, _ := newTestShell(t, noopJournal(t))

	lines := make(chan string)
	close(lines)

	done := make(chan error, 1)
	go func() { done <- sh.run(context.Background(), lines, nil) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after input closed")
	}
}

func TestShellRunStopsOnCancel(t *testing.T) {
	sh, _, _ := newTestShell(t, noopJournal(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sh.run(ctx, make(chan string), nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestAutoFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	limiter := rate.NewLimiter(rate.Inf, 1)

	ch := autoFire(ctx, limiter, func() fault.Category { return fault.OutOfRange })
	for i := 0; i < 3; i++ {
		assert.Equal(t, fault.OutOfRange, <-ch)
	}

	cancel()
	for range ch {
	}
}

func TestRandomCategoryIsValid(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.True(t, randomCategory().IsValid())
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{
		AutoRate:     4,
		AutoBurst:    2,
		Journal:      true,
		JournalPath:  "/tmp/hdsim/journal.db",
		JournalBatch: 8,
	}

	limiter := autoLimiter(cfg)
	require.NotNil(t, limiter)
	assert.Equal(t, rate.Limit(4), limiter.Limit())
	assert.Equal(t, 2, limiter.Burst())

	jc := journalConfig(cfg)
	assert.True(t, jc.Enabled)
	assert.Equal(t, "/tmp/hdsim/journal.db", jc.DBPath)
	assert.Equal(t, 8, jc.BatchSize)
	assert.Equal(t, journal.DefaultConfig().FlushInterval, jc.FlushInterval)

	cfg.AutoRate = 0
	assert.Nil(t, autoLimiter(cfg))
}
