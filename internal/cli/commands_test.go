package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/harun/pasokh/internal/config"
	"github.com/harun/pasokh/pkg/history"
	"github.com/harun/pasokh/pkg/store"
)

func TestAskCommand(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	t.Run("matched", func(t *testing.T) {
		out, err := execute(t, "", "--config", cfgPath, "ask", "hours")
		require.NoError(t, err)

		assert.Contains(t, out, "ساعت کاری ما")
		assert.Contains(t, out, `(matched "hours", score 0.000)`)
	})

	t.Run("fallback", func(t *testing.T) {
		out, err := execute(t, "", "--config", cfgPath, "ask", "xyzzy", "nonsense")
		require.NoError(t, err)

		assert.Contains(t, out, "xyzzy nonsense")
		assert.Contains(t, out, "(fallback)")
	})

	t.Run("rank", func(t *testing.T) {
		out, err := execute(t, "", "--config", cfgPath, "ask", "--rank", "opening hours")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.GreaterOrEqual(t, len(lines), 2)
		assert.Contains(t, lines[0], "SCORE")
		assert.Contains(t, lines[1], "opening hours")
		assert.Contains(t, lines[1], "true")
	})

	t.Run("does not touch history", func(t *testing.T) {
		out, err := execute(t, "", "--config", cfgPath, "history")
		require.NoError(t, err)
		assert.Contains(t, out, "No messages.")
	})

	t.Run("requires a question", func(t *testing.T) {
		_, err := execute(t, "", "--config", cfgPath, "ask")
		assert.Error(t, err)
	})
}

func TestChatHistoryClear(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	out, err := execute(t, "hours\n/dark\n/theme green\n/theme orange\n/quit\n", "--config", cfgPath, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Quick replies:")
	assert.Contains(t, out, "bot is typing...")
	assert.Contains(t, out, "bot: ساعت کاری ما")
	assert.Contains(t, out, "Dark mode on.")
	assert.Contains(t, out, "Theme set to green.")
	assert.Contains(t, out, `unknown theme "orange"`)

	// A second chat restores the conversation and preferences
	out, err = execute(t, "", "--config", cfgPath, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "[theme: green, dark mode: on]")
	assert.Contains(t, out, "you: hours")
	assert.NotContains(t, out, "Quick replies:")

	out, err = execute(t, "", "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "you: hours\nbot: ساعت کاری ما")

	out, err = execute(t, "", "--config", cfgPath, "history", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"role":"user","text":"hours"`)

	out, err = execute(t, "n\n", "--config", cfgPath, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Delete 2 messages? [y/N]")
	assert.Contains(t, out, "Aborted.")

	out, err = execute(t, "", "--config", cfgPath, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Conversation cleared.")

	out, err = execute(t, "", "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No messages.")
}

func TestChatAnswersUnansweredQuery(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	ctx := context.Background()

	cfg, err := config.NewLoader(cfgPath).Load()
	require.NoError(t, err)
	kv, err := store.Open(ctx, cfg.StoreOptions())
	require.NoError(t, err)
	st := store.New(kv, zerolog.Nop(), cfg.UI.Theme)
	require.NoError(t, st.SaveMessages(ctx, []history.Message{history.User("hours")}))
	require.NoError(t, st.Close())

	out, err := execute(t, "", "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "you: hours")
	assert.NotContains(t, out, "bot:", "history does not answer")

	// The reply may land before, during or after the welcome; /history sees it either way.
	out, err = execute(t, "/history\n/quit\n", "--config", cfgPath, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "bot: ساعت کاری ما")

	out, err = execute(t, "", "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "you: hours\nbot: ساعت کاری ما")
}

func TestChatQuickRepliesAndClear(t *testing.T) {
	cfgPath := writeConfig(t, func(c *config.Config) {
		c.UI.QuickReplies = []string{"price", "contact"}
	})

	input := strings.Join([]string{
		"1",        // quick reply while empty
		"1",        // plain text once the conversation started
		"/history", //
		"/clear",
		"yes",
		"/nope",
		"/help",
	}, "\n") + "\n"

	out, err := execute(t, input, "--config", cfgPath, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "  1) price")
	assert.Contains(t, out, "bot: برای اطلاع از قیمت‌ها")
	assert.Contains(t, out, "you: price\n")
	assert.Contains(t, out, "you: 1\n")
	assert.Contains(t, out, "Conversation cleared.")
	assert.Contains(t, out, "Unknown command /nope")
	assert.Contains(t, out, "/clear, /dark")
}

func TestChatMetricsFlag(t *testing.T) {
	cfgPath := writeConfig(t, nil)

	_, err := execute(t, "/quit\n", "--config", cfgPath, "chat", "--metrics-addr", "127.0.0.1:0")
	assert.NoError(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	cfgPath := writeConfig(t, func(c *config.Config) {
		c.Storage.Backend = "etcd"
	})

	_, err := execute(t, "", "--config", cfgPath, "history")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pasokh.json")

	out, err := execute(t, "", "--config", cfgPath, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfgPath+"\n", out)

	out, err = execute(t, "", "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved to")
	_, err = os.Stat(cfgPath)
	require.NoError(t, err)

	_, err = execute(t, "", "--config", cfgPath, "config", "init")
	assert.Error(t, err)

	_, err = execute(t, "", "--config", cfgPath, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = execute(t, "", "--config", cfgPath, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid.")

	out, err = execute(t, "", "--config", cfgPath, "--log-level", "loud", "config", "validate")
	assert.Error(t, err)
	assert.Contains(t, out, "invalid log level")

	out, err = execute(t, "", "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"backend": "file"`)
}
