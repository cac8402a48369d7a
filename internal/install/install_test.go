package install

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/qemu"
	"github.com/virtshell/vshell/internal/ui"
)

var inlinePoster = ui.PosterFunc(func(fn func()) { fn() })

func writeSeedISO(t *testing.T) string {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "seed.iso")
	if err := os.WriteFile(seed, []byte("iso-content"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return seed
}

func TestSetupNeeded(t *testing.T) {
	dir := t.TempDir()
	inst := New(dir, "", 1, zap.NewNop())

	if !inst.SetupNeeded() {
		t.Error("empty runtime dir reports setup not needed")
	}

	for _, name := range []string{qemu.CDROMImage, qemu.HDDImage} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if inst.SetupNeeded() {
		t.Error("staged runtime dir reports setup needed")
	}
}

func TestSetupIfNeededImmediateWhenStaged(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{qemu.CDROMImage, qemu.HDDImage} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	inst := New(dir, "", 1, zap.NewNop())
	calls := 0
	inst.SetupIfNeeded(inlinePoster, func(err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		calls++
	})
	if calls != 1 {
		t.Errorf("callback calls = %d, want 1 (immediate)", calls)
	}
}

func TestSetupIfNeededStagesImages(t *testing.T) {
	dir := t.TempDir()
	seed := writeSeedISO(t)
	inst := New(dir, seed, 1, zap.NewNop())

	done := make(chan error, 1)
	inst.SetupIfNeeded(inlinePoster, func(err error) { done <- err })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("staging failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("staging callback never fired")
	}

	data, err := os.ReadFile(filepath.Join(dir, qemu.CDROMImage))
	if err != nil {
		t.Fatalf("read staged iso: %v", err)
	}
	if string(data) != "iso-content" {
		t.Errorf("staged iso content = %q", data)
	}

	hdd, err := os.Open(filepath.Join(dir, qemu.HDDImage))
	if err != nil {
		t.Fatalf("open hdd image: %v", err)
	}
	defer hdd.Close()
	info, err := hdd.Stat()
	if err != nil {
		t.Fatalf("stat hdd image: %v", err)
	}
	if info.Size() != 1024*1024 {
		t.Errorf("hdd size = %d, want %d", info.Size(), 1024*1024)
	}
	sig := make([]byte, 2)
	if _, err := hdd.ReadAt(sig, 510); err != nil {
		t.Fatalf("read boot signature: %v", err)
	}
	if sig[0] != 0x55 || sig[1] != 0xaa {
		t.Errorf("boot signature = %x, want 55aa", sig)
	}

	if inst.SetupNeeded() {
		t.Error("setup still reported needed after staging")
	}
}

func TestSetupIfNeededMissingSeedFails(t *testing.T) {
	dir := t.TempDir()
	inst := New(dir, filepath.Join(dir, "missing.iso"), 1, zap.NewNop())

	done := make(chan error, 1)
	inst.SetupIfNeeded(inlinePoster, func(err error) { done <- err })

	select {
	case err := <-done:
		if err == nil {
			t.Error("staging with missing seed succeeded")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("staging callback never fired")
	}
}

func TestSetupIfNeededSingleFlight(t *testing.T) {
	dir := t.TempDir()
	seed := writeSeedISO(t)
	inst := New(dir, seed, 1, zap.NewNop())

	// Simulate a staging run already in flight.
	inst.mu.Lock()
	inst.running = true
	inst.mu.Unlock()

	var mu sync.Mutex
	calls := 0
	inst.SetupIfNeeded(inlinePoster, func(error) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("callback calls = %d while a run is in flight, want 0", calls)
	}
}
