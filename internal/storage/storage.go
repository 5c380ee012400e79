package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"snapcam/internal/debug"
	"snapcam/internal/settings"
)

// Fault is a storage failure (write or mount). A Fault during an
// active capture aborts it; the control loop itself keeps running.
type Fault struct {
	Op   string
	Path string
	Err  error
}

func (f *Fault) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("storage: %s failed: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("storage: %s %s failed: %v", f.Op, f.Path, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// IsFault reports whether err is (or wraps) a storage Fault.
func IsFault(err error) bool {
	var sf *Fault
	return errors.As(err, &sf)
}

// ErrNotMounted is wrapped by Faults raised for operations attempted
// while no card is mounted.
var ErrNotMounted = errors.New("card not mounted")

// DetectFunc reports whether the card is physically present. On real
// hardware this reads the card-detect GPIO; in development it checks
// the backing directory.
type DetectFunc func() bool

// Manager owns the SD card mount state and file naming. Filenames are
// mode-tagged and sequence-numbered ({MODE}_{seq:05d}.{ext}), one
// directory per mode. The sequence is monotonic for the lifetime of
// the process and never reused, even across remounts: on mount the
// card is scanned and the counter continues past anything found.
type Manager struct {
	root    string
	detect  DetectFunc
	mounted bool
	seq     int
}

// NewManager creates a manager over the card mount point root.
func NewManager(root string, detect DetectFunc) *Manager {
	return &Manager{root: root, detect: detect, seq: 1}
}

// Present reports whether the card is physically detected.
func (m *Manager) Present() bool {
	if m.detect == nil {
		return true
	}
	return m.detect()
}

// Mounted reports whether the card is mounted and writable.
func (m *Manager) Mounted() bool { return m.mounted }

// Root returns the card mount point.
func (m *Manager) Root() string { return m.root }

// Mount verifies the card is reachable and writable, scans existing
// captures to seed the sequence counter, and marks the card mounted.
func (m *Manager) Mount() error {
	info, err := os.Stat(m.root)
	if err != nil {
		return &Fault{Op: "mount", Path: m.root, Err: err}
	}
	if !info.IsDir() {
		return &Fault{Op: "mount", Path: m.root, Err: fmt.Errorf("not a directory")}
	}

	if max := m.scanMaxSequence(); max >= m.seq {
		m.seq = max + 1
	}

	m.mounted = true
	debug.Info("SD card mounted at %s (next sequence %05d)", m.root, m.seq)
	return nil
}

// Unmount marks the card gone. It takes effect immediately; the
// controller aborts any in-progress write on the same tick.
func (m *Manager) Unmount() {
	if m.mounted {
		debug.Info("SD card unmounted")
	}
	m.mounted = false
}

// NextFilename reserves the next sequence number for mode and returns
// the full path the capture should be written to. The per-mode
// directory is created on demand.
func (m *Manager) NextFilename(mode settings.CaptureMode) (string, error) {
	if !m.mounted {
		return "", &Fault{Op: "next filename", Err: ErrNotMounted}
	}

	dir := filepath.Join(m.root, mode.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &Fault{Op: "mkdir", Path: dir, Err: err}
	}

	name := fmt.Sprintf("%s_%05d.%s", mode.String(), m.seq, mode.Ext())
	m.seq++
	return filepath.Join(dir, name), nil
}

// Write stores data at path. On failure any partial file is removed
// so aborted captures never leave truncated artifacts behind.
func (m *Manager) Write(path string, data []byte) error {
	if !m.mounted {
		return &Fault{Op: "write", Path: path, Err: ErrNotMounted}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.Remove(path)
		return &Fault{Op: "write", Path: path, Err: err}
	}

	debug.Verbose("Storage: wrote %d bytes to %s", len(data), path)
	return nil
}

// ListImages returns all saved captures across mode directories,
// sorted by name. Used by the gallery.
func (m *Manager) ListImages() ([]string, error) {
	if !m.mounted {
		return nil, &Fault{Op: "list", Err: ErrNotMounted}
	}

	var files []string
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, &Fault{Op: "list", Path: m.root, Err: err}
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(m.root, e.Name())
		inner, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range inner {
			name := strings.ToLower(f.Name())
			if strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".jpeg") || strings.HasSuffix(name, ".gif") {
				files = append(files, filepath.Join(dir, f.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// scanMaxSequence walks the mode directories for the highest sequence
// number already on the card.
func (m *Manager) scanMaxSequence() int {
	max := 0
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		inner, err := os.ReadDir(filepath.Join(m.root, e.Name()))
		if err != nil {
			continue
		}
		for _, f := range inner {
			base := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
			idx := strings.LastIndex(base, "_")
			if idx < 0 {
				continue
			}
			if seq, err := strconv.Atoi(base[idx+1:]); err == nil && seq > max {
				max = seq
			}
		}
	}
	return max
}
