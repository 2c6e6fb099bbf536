package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"spacehub/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestBootstrapWithoutOptionalServices(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SPACEHUB_TEST_DIR", dir)
	t.Setenv("CONFIG_PATH", writeConfig(t, `
database:
  path: ${SPACEHUB_TEST_DIR}/data/spacehub.db
exports:
  path: ${SPACEHUB_TEST_DIR}/exports
logging:
  level: error
api:
  auth:
    jwt_secret: bootstrap-test-secret
    bcrypt_cost: 4
`))

	core, err := Bootstrap(context.Background(), Options{Component: "test"})
	require.NoError(t, err)
	defer core.Close()

	assert.Nil(t, core.Redis)
	assert.Nil(t, core.Worker)
	assert.Nil(t, core.Telegram)
	assert.Equal(t, "router", core.Notifier.Channel())
	assert.DirExists(t, filepath.Join(dir, "exports"))
	assert.FileExists(t, filepath.Join(dir, "data", "spacehub.db"))

	ctx := context.Background()
	user, err := core.Users.Register(ctx, service.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	code, _, err := core.Users.CreateTelegramLinkCode(ctx, user.ID)
	require.NoError(t, err)
	linked, err := core.Users.LinkTelegram(ctx, code, 4242)
	require.NoError(t, err)
	assert.Equal(t, int64(4242), linked.TelegramChatID)
}

func TestBootstrapRejectsInvalidConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "database:\n  path: ''\n"))
	_, err := Bootstrap(context.Background(), Options{Component: "test"})
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "configs/config.yaml", ConfigPath())
	t.Setenv("CONFIG_PATH", "/etc/spacehub.yaml")
	assert.Equal(t, "/etc/spacehub.yaml", ConfigPath())
}
