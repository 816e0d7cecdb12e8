package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/walker1992/stake-reward/logger"
	"github.com/walker1992/stake-reward/wallet"
)

// execCommand runs the app with the given arguments, each argument is one
// element so values with spaces survive.
func execCommand(t *testing.T, homeDir string, args ...string) (string, error) {
	t.Helper()
	app := New(logger.New)
	out := &bytes.Buffer{}
	app.baseCmd.SetOut(out)
	app.baseCmd.SetArgs(append(args, "--home", homeDir))
	err := app.Execute(context.Background())
	return out.String(), err
}

func TestWalletCommands(t *testing.T) {
	homeDir := t.TempDir()

	out, err := execCommand(t, homeDir, "wallet", "create")
	require.NoError(t, err)
	require.Contains(t, out, "Wallet successfully created")
	require.Contains(t, out, "mnemonic seed")

	out, err = execCommand(t, homeDir, "wallet", "add-key")
	require.NoError(t, err)
	require.Contains(t, out, "#1 ")

	out, err = execCommand(t, homeDir, "wallet", "list-keys")
	require.NoError(t, err)
	require.Contains(t, out, "#0 ")
	require.Contains(t, out, "#1 ")
}

func TestWalletCreate_FromSeed(t *testing.T) {
	const mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	homeDir := t.TempDir()

	out, err := execCommand(t, homeDir, "wallet", "create", "--seed", mnemonic)
	require.NoError(t, err)
	// the mnemonic was given by the user, it must not be echoed back
	require.NotContains(t, out, "mnemonic seed")

	expected, err := wallet.DeriveAccountKey(mnemonic, 0)
	require.NoError(t, err)
	require.Contains(t, out, fmt.Sprintf("#0 %s", expected.PubKey))
}

func TestWalletCreate_PasswordFlagsExclusive(t *testing.T) {
	_, err := execCommand(t, t.TempDir(), "wallet", "create", "-p", "secret", "--password-prompt")
	require.ErrorContains(t, err, "mutually exclusive")
}

func TestClientCommands_NoNetwork(t *testing.T) {
	// no runtime info file and no --rpc-url, client commands must refuse to run
	homeDir := t.TempDir()
	_, err := execCommand(t, homeDir, "wallet", "create")
	require.NoError(t, err)

	_, err = execCommand(t, homeDir, "pool", "show", "--pool", "0")
	require.ErrorContains(t, err, "no running local network found")
}

func TestBuildCommand(t *testing.T) {
	t.Run("missing program dir", func(t *testing.T) {
		_, err := execCommand(t, t.TempDir(), "build")
		require.ErrorContains(t, err, "program-dir")
	})

	t.Run("prints artifact path", func(t *testing.T) {
		srcDir := t.TempDir()
		artifact := filepath.Join(srcDir, "target", "deploy", "staking.so")
		script := fmt.Sprintf("#!/bin/sh\nmkdir -p %q\ntouch %q\n", filepath.Dir(artifact), artifact)
		cargo := filepath.Join(srcDir, "fake-cargo.sh")
		require.NoError(t, os.WriteFile(cargo, []byte(script), 0700))

		out, err := execCommand(t, t.TempDir(),
			"build", "--program-dir", srcDir, "--cargo-bin", cargo)
		require.NoError(t, err)
		require.Contains(t, out, artifact)
	})
}

func TestStartCommand_FlagValidation(t *testing.T) {
	t.Run("skip-build without program", func(t *testing.T) {
		_, err := execCommand(t, t.TempDir(), "start", "--skip-build")
		require.ErrorContains(t, err, "--skip-build requires --program")
	})

	t.Run("no program source given", func(t *testing.T) {
		_, err := execCommand(t, t.TempDir(), "start")
		require.ErrorContains(t, err, "either --program or --program-dir")
	})
}

func TestLoggerFlags(t *testing.T) {
	t.Run("log file is created", func(t *testing.T) {
		homeDir := t.TempDir()
		logFile := filepath.Join(homeDir, "out.log")
		_, err := execCommand(t, homeDir, "wallet", "create", "--log-file", logFile, "--log-level", "DEBUG")
		require.NoError(t, err)
		require.FileExists(t, logFile)
	})

	t.Run("invalid logger cfg file", func(t *testing.T) {
		homeDir := t.TempDir()
		cfgFile := filepath.Join(homeDir, "logger.yaml")
		require.NoError(t, os.WriteFile(cfgFile, []byte("not: [valid"), 0600))
		_, err := execCommand(t, homeDir, "wallet", "create", "--logger-config", cfgFile)
		require.ErrorContains(t, err, "decoding logger configuration")
	})
}

func TestEnvBinding(t *testing.T) {
	homeDir := t.TempDir()
	logFile := filepath.Join(homeDir, "env.log")
	t.Setenv("SR_LOG_FILE", logFile)

	_, err := execCommand(t, homeDir, "wallet", "create")
	require.NoError(t, err)
	require.FileExists(t, logFile)
}
