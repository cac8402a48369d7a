// Package install stages the disk images a session boots from. It is the
// first-run gate: session start is deferred until staging has completed.
package install

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/qemu"
	"github.com/virtshell/vshell/internal/ui"
)

// DefaultHDDSizeMB is the hard disk image size created on first run.
const DefaultHDDSizeMB int64 = 8192

// Installer stages the CD-ROM and hard disk images into the runtime dir.
type Installer struct {
	runtimeDir string
	seedISO    string
	hddSizeMB  int64
	log        *zap.Logger

	mu      sync.Mutex
	running bool
}

// New creates an installer. seedISO is the source installation image
// copied into the runtime dir on first run.
func New(runtimeDir, seedISO string, hddSizeMB int64, log *zap.Logger) *Installer {
	if hddSizeMB <= 0 {
		hddSizeMB = DefaultHDDSizeMB
	}
	return &Installer{
		runtimeDir: runtimeDir,
		seedISO:    seedISO,
		hddSizeMB:  hddSizeMB,
		log:        log,
	}
}

// SetupNeeded reports whether first-run staging still has to happen.
func (i *Installer) SetupNeeded() bool {
	for _, name := range []string{qemu.CDROMImage, qemu.HDDImage} {
		if _, err := os.Stat(filepath.Join(i.runtimeDir, name)); err != nil {
			return true
		}
	}
	return false
}

// SetupIfNeeded runs staging if necessary. onComplete fires exactly once
// on the UI context: immediately when the images are already in place,
// otherwise after asynchronous staging. A staging run already in flight
// absorbs the duplicate request without a second callback.
func (i *Installer) SetupIfNeeded(post ui.Poster, onComplete func(error)) {
	if !i.SetupNeeded() {
		post.Post(func() { onComplete(nil) })
		return
	}

	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return
	}
	i.running = true
	i.mu.Unlock()

	go func() {
		err := i.stage()
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
		post.Post(func() { onComplete(err) })
	}()
}

// stage creates the runtime dir and both disk images.
func (i *Installer) stage() error {
	if err := os.MkdirAll(i.runtimeDir, 0o755); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}

	cdrom := filepath.Join(i.runtimeDir, qemu.CDROMImage)
	if _, err := os.Stat(cdrom); err != nil {
		i.log.Info("staging installation image", zap.String("from", i.seedISO))
		if err := copyFile(i.seedISO, cdrom); err != nil {
			return fmt.Errorf("stage installation image: %w", err)
		}
	}

	hdd := filepath.Join(i.runtimeDir, qemu.HDDImage)
	if _, err := os.Stat(hdd); err != nil {
		i.log.Info("creating hard disk image",
			zap.String("path", hdd),
			zap.Int64("size_mb", i.hddSizeMB))
		if err := createDiskImage(hdd, i.hddSizeMB); err != nil {
			return fmt.Errorf("create hard disk image: %w", err)
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

// createDiskImage creates a sparse raw image carrying a boot signature so
// the firmware accepts it as a boot target and falls through to the
// CD-ROM while no OS is installed.
func createDiskImage(path string, sizeMB int64) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Truncate(sizeMB * 1024 * 1024); err != nil {
		os.Remove(path)
		return err
	}
	if _, err := f.WriteAt([]byte{0x55, 0xaa}, 510); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
