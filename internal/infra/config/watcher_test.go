package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webmcpd.yaml")
	writeThreshold := func(threshold int) {
		content := fmt.Sprintf("breaker:\n  failureThreshold: %d\n", threshold)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	writeThreshold(3)

	updates := make(chan domain.ServerConfig, 8)
	w := NewWatcher(WatcherOptions{
		Path: path,
		OnChange: func(cfg domain.ServerConfig) {
			select {
			case updates <- cfg:
			default:
			}
		},
		Logger:   zap.NewNop(),
		Debounce: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	// Keep rewriting until a reload lands; the first write can race the
	// watch registration.
	require.Eventually(t, func() bool {
		writeThreshold(9)
		select {
		case cfg := <-updates:
			return cfg.Breaker.FailureThreshold == 9
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}

func TestWatcher_KeepsLastGoodConfigOnBadEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webmcpd.yaml")
	write := func(content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("breaker:\n  failureThreshold: 3\n")

	updates := make(chan domain.ServerConfig, 8)
	w := NewWatcher(WatcherOptions{
		Path: path,
		OnChange: func(cfg domain.ServerConfig) {
			select {
			case updates <- cfg:
			default:
			}
		},
		Logger:   zap.NewNop(),
		Debounce: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// A failing validation must never reach OnChange, so every update
	// observed below has to carry the valid value.
	write("breaker:\n  failureThreshold: 0\n")
	time.Sleep(150 * time.Millisecond)
	select {
	case cfg := <-updates:
		t.Fatalf("reload delivered invalid config: %+v", cfg.Breaker)
	default:
	}

	require.Eventually(t, func() bool {
		write("breaker:\n  failureThreshold: 7\n")
		select {
		case cfg := <-updates:
			require.Equal(t, 7, cfg.Breaker.FailureThreshold)
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
}
