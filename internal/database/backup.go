package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"spacehub/internal/config"

	"github.com/rs/zerolog"
)

const (
	backupPrefix          = "spacehub_"
	defaultBackupInterval = 24 * time.Hour
)

// BackupService snapshots the sqlite file on a fixed interval and prunes old snapshots.
type BackupService struct {
	db       *DB
	dbPath   string
	config   config.BackupConfig
	interval time.Duration
	now      func() time.Time
	logger   *zerolog.Logger
}

// NewBackupService reads the interval from cfg.Schedule ("6h", "24h"); anything unparsable means daily.
func NewBackupService(db *DB, dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	s := &BackupService{
		db:       db,
		dbPath:   dbPath,
		config:   cfg,
		interval: defaultBackupInterval,
		now:      time.Now,
		logger:   logger,
	}
	if cfg.Schedule != "" {
		d, err := time.ParseDuration(cfg.Schedule)
		if err != nil || d <= 0 {
			logger.Warn().Err(err).Str("schedule", cfg.Schedule).Msg("invalid backup schedule, backing up daily")
		} else {
			s.interval = d
		}
	}
	return s
}

// Start takes one snapshot right away and then one per interval until ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}
	s.logger.Info().Dur("interval", s.interval).Str("dir", s.config.StoragePath).Msg("Backup service started")

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BackupService) runOnce(ctx context.Context) {
	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("backup failed")
		return
	}
	s.CleanupOldBackups()
}

// PerformBackup writes a consistent copy of the database and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := backupPrefix + s.now().UTC().Format("20060102_150405.000") + ".db"
	target := filepath.Join(s.config.StoragePath, name)

	quoted := strings.ReplaceAll(target, "'", "''")
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO '"+quoted+"'"); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, copying the file instead")
		if err := copyFileAtomic(s.dbPath, target); err != nil {
			return "", err
		}
	}

	s.logger.Info().Str("path", target).Msg("database backup written")
	return target, nil
}

// copyFileAtomic copies src next to dst and renames it into place.
// Writes that land during the copy may still be missing from it.
func copyFileAtomic(src, dst string) error {
	if src == "" || src == ":memory:" {
		return fmt.Errorf("no database file to copy")
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".backup-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// CleanupOldBackups removes snapshots older than the retention window, always keeping the newest one.
func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory")
		return
	}

	type snapshot struct {
		name    string
		modTime time.Time
	}
	var snapshots []snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, snapshot{name: e.Name(), modTime: info.ModTime()})
	}
	if len(snapshots) < 2 {
		return
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].modTime.After(snapshots[j].modTime) })

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	for _, snap := range snapshots[1:] {
		if !snap.modTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.config.StoragePath, snap.name)); err != nil {
			s.logger.Warn().Err(err).Str("file", snap.name).Msg("delete old backup")
			continue
		}
		s.logger.Info().Str("file", snap.name).Msg("old backup deleted")
	}
}
