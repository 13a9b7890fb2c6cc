// Package storage provides the durable log each box is backed by: a single
// append-only ".hive" file, a sibling ".hivec" compaction scratch file, and a
// ".lock" advisory lock file. It generalizes the teacher's buffered,
// mutex-guarded File (internal/storage/file.go) from a single fixed process
// log to a per-box backend with compaction support.
package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/sixafter/nanoid"
	"golang.org/x/sys/unix"

	"github.com/jassi-singh/hivebox/internal/config"
	"github.com/jassi-singh/hivebox/internal/hiveerr"
)

// Backend is the durable storage layer for one box: a buffered append-only
// log, an advisory lock preventing two processes from opening the same box,
// and compaction support via the .hive/.hivec pivot.
//
// mu is a single-writer/multi-reader lock: ReadValue takes it for reading,
// WriteFrames and Compact take it for writing. This mirrors the teacher's
// File.mu, widened from a plain Mutex because concurrent Get calls on a
// large box should not serialize behind each other.
type Backend struct {
	mu sync.RWMutex

	dir  string
	name string

	logPath  string
	lockPath string

	logFile *os.File
	buffer  *bufio.Writer
	lock    *fileLock

	size         int64
	lastSyncTime time.Time

	cfg *config.Config
}

// Open acquires the named box's lock and log file under dataDir, resolving
// any compaction left interrupted by a prior crash first.
func Open(cfg *config.Config, name string) (*Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage: config cannot be nil")
	}
	if err := os.MkdirAll(cfg.DATA_DIR, 0755); err != nil {
		return nil, fmt.Errorf("storage: create data dir %s: %w", cfg.DATA_DIR, err)
	}

	b := &Backend{
		dir:      cfg.DATA_DIR,
		name:     name,
		logPath:  filepath.Join(cfg.DATA_DIR, name+".hive"),
		lockPath: filepath.Join(cfg.DATA_DIR, name+".lock"),
		cfg:      cfg,
	}

	lock, err := acquireFileLock(b.lockPath)
	if err != nil {
		return nil, err
	}
	b.lock = lock

	if err := b.resolveCompactionPivot(); err != nil {
		b.lock.Close()
		return nil, err
	}

	f, err := os.OpenFile(b.logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		b.lock.Close()
		return nil, fmt.Errorf("storage: open log file %s: %w", b.logPath, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		b.lock.Close()
		return nil, fmt.Errorf("storage: stat log file: %w", err)
	}

	b.logFile = f
	b.buffer = bufio.NewWriter(f)
	b.size = stat.Size()
	b.lastSyncTime = time.Now()

	slog.Info("storage: backend opened", "box", name, "path", b.logPath, "size", b.size)
	return b, nil
}

// resolveCompactionPivot implements SPEC_FULL.md's crash-recovery rule for
// the .hive/.hivec pair: old wins if both exist, new wins if only the
// scratch file exists.
func (b *Backend) resolveCompactionPivot() error {
	hivecPath := filepath.Join(b.dir, b.name+".hivec")

	_, hiveErr := os.Stat(b.logPath)
	hiveExists := hiveErr == nil
	_, hivecErr := os.Stat(hivecPath)
	hivecExists := hivecErr == nil

	switch {
	case hiveExists && hivecExists:
		slog.Warn("storage: interrupted compaction detected, discarding stale scratch file", "path", hivecPath)
		return os.Remove(hivecPath)
	case !hiveExists && hivecExists:
		slog.Warn("storage: interrupted compaction detected, completing pivot", "path", hivecPath)
		return os.Rename(hivecPath, b.logPath)
	case !hiveExists && !hivecExists:
		f, err := os.OpenFile(b.logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("storage: create log file %s: %w", b.logPath, err)
		}
		return f.Close()
	default:
		return nil
	}
}

// Size returns the current length of the log, i.e. the offset the next
// appended frame will land at.
func (b *Backend) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// WriteFrames appends each already-encoded frame to the log in order,
// returning the offset it was written at. It auto-flushes on the same
// batch-size/sync-interval thresholds as the teacher's File.Append.
func (b *Backend) WriteFrames(frames [][]byte) ([]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	writeOffset := b.size

	offsets := make([]int64, len(frames))
	for i, frame := range frames {
		offsets[i] = b.size
		n, err := b.buffer.Write(frame)
		if err != nil {
			b.abortWrite(writeOffset)
			return nil, fmt.Errorf("storage: write frame at offset %d: %w", offsets[i], err)
		}
		if n != len(frame) {
			b.abortWrite(writeOffset)
			return nil, fmt.Errorf("storage: partial frame write (%d of %d bytes) at offset %d: %w", n, len(frame), offsets[i], hiveerr.ErrIO)
		}
		b.size += int64(n)
	}

	if b.buffer.Buffered() >= int(b.cfg.BATCH_SIZE) || time.Since(b.lastSyncTime) >= time.Duration(b.cfg.SYNC_INTERVAL)*time.Second {
		if err := b.flushAndSync(); err != nil {
			b.abortWrite(writeOffset)
			return nil, err
		}
	}
	return offsets, nil
}

// abortWrite reverts a failed WriteFrames call: it truncates the log file
// back to writeOffset (undoing any bytes an internal bufio flush already
// pushed to disk for earlier frames in the same batch) and replaces the
// write buffer so no dangling bytes from the failed batch survive, keeping
// in-memory size consistent with what's actually on disk.
func (b *Backend) abortWrite(writeOffset int64) {
	if err := b.logFile.Truncate(writeOffset); err != nil {
		slog.Error("storage: truncate after failed write", "box", b.name, "offset", writeOffset, "error", err)
	}
	b.buffer = bufio.NewWriter(b.logFile)
	b.size = writeOffset
}

// Flush forces buffered writes to disk, e.g. before Close or before an
// eager box hands out a read that depends on unflushed bytes.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushAndSync()
}

func (b *Backend) flushAndSync() error {
	if err := b.buffer.Flush(); err != nil {
		return fmt.Errorf("storage: flush buffer: %w", err)
	}
	if err := b.logFile.Sync(); err != nil {
		return fmt.Errorf("storage: sync log file: %w", err)
	}
	b.lastSyncTime = time.Now()
	return nil
}

// ReadValue reads length bytes at offset from the durable log, flushing
// first if that range still sits in the unflushed write buffer rather than
// on disk. Grounded on the teacher's File.ShouldFlushBeforeRead/Flush pair,
// which a lazy box's read-after-write depends on just as much as the
// teacher's engine does.
func (b *Backend) ReadValue(offset int64, length uint32) ([]byte, error) {
	b.mu.RLock()
	onDisk := offset+int64(length) <= b.size-int64(b.buffer.Buffered())
	b.mu.RUnlock()
	if !onDisk {
		if err := b.Flush(); err != nil {
			return nil, err
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data := make([]byte, length)
	if _, err := b.logFile.ReadAt(data, offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("storage: read %d bytes at offset %d: %w", length, offset, err)
	}
	return data, nil
}

// Reader opens a fresh, independent read-only handle onto the log file from
// the start, for the startup recovery scan (internal/scanio). It is
// separate from the backend's own read/write handle so the scan can proceed
// without disturbing ReadValue/WriteFrames bookkeeping; callers must Close it.
func (b *Backend) Reader() (*os.File, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	f, err := os.Open(b.logPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open log file %s for scan: %w", b.logPath, err)
	}
	return f, nil
}

// TruncateTo cuts the log down to offset bytes, used when a startup scan
// finds a corrupt or truncated tail and CrashRecovery permits discarding it.
func (b *Backend) TruncateTo(offset int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.logFile.Truncate(offset); err != nil {
		return fmt.Errorf("storage: truncate log to %d bytes: %w", offset, err)
	}
	b.size = offset
	b.buffer = bufio.NewWriter(b.logFile)
	return nil
}

// Compact rewrites the log to hold exactly frames, in order, discarding
// everything else (dead values and tombstones). It returns each frame's new
// offset, matching the input order, so the caller (box.Compact) can update
// its keystore.
func (b *Backend) Compact(frames [][]byte) ([]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.flushAndSync(); err != nil {
		return nil, err
	}

	var content bytes.Buffer
	offsets := make([]int64, len(frames))
	var offset int64
	for i, frame := range frames {
		offsets[i] = offset
		content.Write(frame)
		offset += int64(len(frame))
	}

	suffix, err := nanoid.New()
	if err != nil {
		return nil, fmt.Errorf("storage: generate scratch suffix: %w", err)
	}
	stagePath := filepath.Join(b.dir, fmt.Sprintf("%s-%s.hivec.tmp", b.name, suffix))
	if err := atomic.WriteFile(stagePath, bytes.NewReader(content.Bytes())); err != nil {
		return nil, fmt.Errorf("storage: stage compacted log: %w", err)
	}

	hivecPath := filepath.Join(b.dir, b.name+".hivec")
	if err := os.Rename(stagePath, hivecPath); err != nil {
		os.Remove(stagePath)
		return nil, fmt.Errorf("storage: publish compaction scratch file: %w", err)
	}
	if err := os.Rename(hivecPath, b.logPath); err != nil {
		return nil, fmt.Errorf("storage: pivot compacted log into place: %w", err)
	}

	if err := b.logFile.Close(); err != nil {
		slog.Warn("storage: error closing pre-compaction log handle", "error", err)
	}
	f, err := os.OpenFile(b.logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: reopen compacted log: %w", err)
	}
	b.logFile = f
	b.buffer = bufio.NewWriter(f)
	b.size = int64(content.Len())
	b.lastSyncTime = time.Now()

	slog.Info("storage: compaction complete", "box", b.name, "frames", len(frames), "size", b.size)
	return offsets, nil
}

// Clear truncates the log to empty, used by Box.Clear.
func (b *Backend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.logFile.Truncate(0); err != nil {
		return fmt.Errorf("storage: truncate log: %w", err)
	}
	if _, err := b.logFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("storage: seek log to start: %w", err)
	}
	b.buffer = bufio.NewWriter(b.logFile)
	b.size = 0
	return nil
}

// Close flushes and releases the log file and lock.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	if err := b.flushAndSync(); err != nil {
		firstErr = err
	}
	if err := b.logFile.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("storage: close log file: %w", err)
	}
	if err := b.lock.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("storage: release lock: %w", err)
	}
	return firstErr
}

// DeleteFromDisk closes the backend and removes its log and lock files.
func (b *Backend) DeleteFromDisk() error {
	if err := b.Close(); err != nil {
		return err
	}
	for _, p := range []string{b.logPath, b.lockPath, filepath.Join(b.dir, b.name+".hivec")} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage: remove %s: %w", p, err)
		}
	}
	return nil
}

// fileLock is an advisory, process-exclusive lock on a box's .lock file,
// taken via flock(2) so a second process opening the same box fails fast
// instead of corrupting the log. Grounded on the teacher-adjacent
// calvinalkan-agent-task's internal/ticket/lock.go, which takes the same
// kind of exclusive flock over a sibling lock file before touching its
// cache; translated here from syscall.Flock to golang.org/x/sys/unix so the
// lock type can be extended with non-blocking/shared variants later.
type fileLock struct {
	f *os.File
}

func acquireFileLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: box already open by another process: %w", hiveerr.ErrBoxLocked)
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) Close() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("storage: release flock: %w", err)
	}
	return l.f.Close()
}
