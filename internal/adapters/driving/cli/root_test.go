package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/logger"
)

func TestRootCmd_Flags(t *testing.T) {
	assert.Equal(t, "filings", rootCmd.Use)
	for _, name := range []string{"config", "manifest", "env-file", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{"ask", "chunk", "embed", "eval", "mcp", "run", "search", "settings", "status", "tui", "version", "watch"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestPreRun_LoadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FILINGS_TEST_KEY=from-file\n"), 0600))
	t.Setenv("FILINGS_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("FILINGS_TEST_KEY"))

	_, err := execute(t, "version", "--env-file", path)

	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("FILINGS_TEST_KEY"))
}

func TestPreRun_EnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FILINGS_TEST_KEY=from-file\n"), 0600))
	t.Setenv("FILINGS_TEST_KEY", "from-env")

	_, err := execute(t, "version", "--env-file", path)

	require.NoError(t, err)
	assert.Equal(t, "from-env", os.Getenv("FILINGS_TEST_KEY"))
}

func TestPreRun_MissingEnvFileIgnored(t *testing.T) {
	_, err := execute(t, "version", "--env-file", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestPreRun_Verbose(t *testing.T) {
	defer logger.SetVerbose(false)

	_, err := execute(t, "version", "-v")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}
