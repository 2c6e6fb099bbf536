package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spacehub/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "source.db")
	storagePath := filepath.Join(dir, "backups")

	logger := zerolog.Nop()
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()
	createTestUser(t, db, "backup@example.com")

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	s := NewBackupService(db, dbPath, cfg, &logger)

	var backupPath string
	t.Run("PerformBackup", func(t *testing.T) {
		backupPath, err = s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filepath.Base(backupPath), backupPrefix))

		restored, err := NewDB(backupPath, &logger)
		require.NoError(t, err)
		defer restored.Close()
		u, err := restored.GetUserByEmail(context.Background(), "backup@example.com")
		require.NoError(t, err)
		assert.Equal(t, "backup@example.com", u.Email)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, backupPrefix+"old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		foreign := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(foreign, oldTime, oldTime))

		s.CleanupOldBackups()

		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, foreign, "only backup files are pruned")
		assert.FileExists(t, backupPath)
	})
}

func TestCleanupKeepsNewestBackup(t *testing.T) {
	storagePath := t.TempDir()
	logger := zerolog.Nop()
	s := NewBackupService(nil, "", config.BackupConfig{StoragePath: storagePath, RetentionDays: 1}, &logger)

	only := filepath.Join(storagePath, backupPrefix+"only.db")
	require.NoError(t, os.WriteFile(only, []byte("x"), 0o644))
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(only, old, old))

	s.CleanupOldBackups()
	assert.FileExists(t, only)
}

func TestCopyFileAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	dst := filepath.Join(dir, "dst.db")
	require.NoError(t, copyFileAtomic(src, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	assert.Error(t, copyFileAtomic(":memory:", dst))
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".backup-*"))
	assert.Empty(t, leftovers)
}

func TestBackupScheduleParsing(t *testing.T) {
	logger := zerolog.Nop()
	assert.Equal(t, 6*time.Hour, NewBackupService(nil, "", config.BackupConfig{Schedule: "6h"}, &logger).interval)
	assert.Equal(t, defaultBackupInterval, NewBackupService(nil, "", config.BackupConfig{Schedule: "daily"}, &logger).interval)
	assert.Equal(t, defaultBackupInterval, NewBackupService(nil, "", config.BackupConfig{}, &logger).interval)
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, "any", config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}
