package snapshot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrInMemoryStore indicates the store has no file to back up.
var ErrInMemoryStore = errors.New("snapshot: in-memory store cannot be backed up")

// BackupTo checkpoints the database and copies its file to dstPath.
// The copy happens outside the store lock.
func (s *Store) BackupTo(dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	s.mu.Lock()
	dbPath := s.dbPath
	if dbPath == "" {
		s.mu.Unlock()
		return ErrInMemoryStore
	}
	if _, err := s.db.Exec("CHECKPOINT"); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("checkpoint: %w", err)
	}
	s.mu.Unlock()

	if err := copyFile(dbPath, dstPath); err != nil {
		return fmt.Errorf("copy duckdb file: %w", err)
	}
	return nil
}

// BackupConfig configures periodic local backups.
type BackupConfig struct {
	Dir      string
	Interval time.Duration
	KeepLast int
}

// Backuper copies the database into Dir on an interval and keeps the
// newest KeepLast copies.
type Backuper struct {
	store *Store
	clock clockwork.Clock
	cfg   BackupConfig

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewBackuper starts periodic backups. It returns nil when cfg.Dir is empty.
func NewBackuper(store *Store, clock clockwork.Clock, cfg BackupConfig) (*Backuper, error) {
	if cfg.Dir == "" {
		return nil, nil
	}
	if store.DBPath() == "" {
		return nil, ErrInMemoryStore
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = 8
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("snapshot: create backup dir: %w", err)
	}

	b := &Backuper{store: store, clock: clock, cfg: cfg, done: make(chan struct{})}
	b.wg.Add(1)
	go b.loop()
	return b, nil
}

func (b *Backuper) loop() {
	defer b.wg.Done()
	ticker := b.clock.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := b.RunOnce(); err != nil {
				slog.Warn("snapshot: backup failed", "error", err)
			}
		case <-b.done:
			return
		}
	}
}

// RunOnce writes one backup and prunes old ones.
func (b *Backuper) RunOnce() error {
	name := fmt.Sprintf("dealboard-%s.duckdb", b.clock.Now().UTC().Format("20060102-150405"))
	dst := filepath.Join(b.cfg.Dir, name)
	if err := b.store.BackupTo(dst); err != nil {
		return err
	}
	slog.Info("snapshot: backup written", "path", dst)
	return pruneBackups(b.cfg.Dir, b.cfg.KeepLast)
}

// Stop ends the backup loop.
func (b *Backuper) Stop() {
	if b == nil {
		return
	}
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
	})
}

func pruneBackups(dir string, keepLast int) error {
	matches, err := filepath.Glob(filepath.Join(dir, "dealboard-*.duckdb"))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}
	// Timestamps in the names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dstPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dstPath)
}
