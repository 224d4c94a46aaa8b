package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"appointly/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_SnapshotAndPrune(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()

	db, err := NewDB(filepath.Join(dir, "appointly.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Submit(context.Background(), oneTimeBooking("2024-06-03", 9, 0))
	require.NoError(t, err)

	storage := filepath.Join(dir, "backups")
	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: storage, RetentionDays: 1}, &logger)

	path, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)

	// the snapshot is a readable database with the booking in it
	copyDB, err := NewDB(path, &logger)
	require.NoError(t, err)
	defer copyDB.Close()
	b, err := copyDB.GetBooking(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03T09:00:00", b.Timestamp)

	old := filepath.Join(storage, backupPrefix+"20000101_000000.db")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	stale := time.Now().AddDate(0, 0, -2)
	require.NoError(t, os.Chtimes(old, stale, stale))

	foreign := filepath.Join(storage, "notes.txt")
	require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))
	require.NoError(t, os.Chtimes(foreign, stale, stale))

	assert.Equal(t, 1, s.Prune())
	assert.NoFileExists(t, old)
	assert.FileExists(t, foreign)
	assert.FileExists(t, path)
}

func TestBackupService_Disabled(t *testing.T) {
	logger := zerolog.Nop()
	db := setupTestDB(t)
	s := NewBackupService(db, config.BackupConfig{Enabled: false, StoragePath: t.TempDir()}, &logger)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled backup loop did not return")
	}
}

func TestBackupService_Interval(t *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, config.BackupConfig{Schedule: "6h"}, &logger)
	assert.Equal(t, 6*time.Hour, s.interval())

	s.config.Schedule = "nonsense"
	assert.Equal(t, 24*time.Hour, s.interval())

	s.config.Schedule = ""
	assert.Equal(t, 24*time.Hour, s.interval())
}
