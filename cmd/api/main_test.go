package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
employees:
  - id: E1
    name: Анна
    telegram_chat_id: 1001
  - id: E2
    name: Борис
    is_active: false
clients:
  - id: C1
    name: ООО Ромашка
    phone: "+7 900 000-00-00"
services:
  - id: S1
    name: Консультация
    duration_minutes: 60
`), 0o600))

	snap, err := loadDirectory(path)
	require.NoError(t, err)

	require.Len(t, snap.Employees, 2)
	assert.True(t, snap.Employees[0].IsActive)
	assert.Equal(t, int64(1001), snap.Employees[0].TelegramChatID)
	assert.False(t, snap.Employees[1].IsActive)
	assert.Equal(t, "+7 900 000-00-00", snap.Clients[0].Phone)
	assert.Equal(t, 60, snap.Services[0].DurationMinutes)
}

func TestLoadDirectory_Errors(t *testing.T) {
	_, err := loadDirectory(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("employees: [oops"), 0o600))
	_, err = loadDirectory(path)
	assert.Error(t, err)
}
