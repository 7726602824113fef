package config

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder failed: %v", err)
	}
	defer h.Stop()

	cfg := h.Get()
	if cfg == nil {
		t.Fatal("Get returned nil")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder failed: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if got := h.Get().Logging.Level; got != "debug" {
		t.Errorf("level after reload = %q, want debug", got)
	}
}

func TestHolder_ReloadInvalidKeepsOld(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder failed: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("logging:\n  level: bogus\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for an invalid config")
	}

	if got := h.Get().Logging.Level; got != "info" {
		t.Errorf("level = %q, want old value info", got)
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder failed: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var seen string
	h.OnChange(func(cfg *Config) {
		mu.Lock()
		seen = cfg.Logging.Level
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen != "warn" {
		t.Errorf("callback saw level %q, want warn", seen)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder failed: %v", err)
	}
	defer h.Stop()

	reloaded := make(chan struct{}, 1)
	h.OnChange(func(cfg *Config) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("file watcher did not trigger a reload")
	}

	if got := h.Get().Logging.Level; got != "debug" {
		t.Errorf("level = %q, want debug", got)
	}
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder failed: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}
