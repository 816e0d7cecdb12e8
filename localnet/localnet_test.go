package localnet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	test "github.com/walker1992/stake-reward/internal/testutils"
	testnet "github.com/walker1992/stake-reward/internal/testutils/net"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	require.Equal(t, DefaultBindAddr, cfg.BindAddr)
	require.Equal(t, DefaultRPCPort, cfg.RPCPort)
	require.Equal(t, DefaultFaucetPort, cfg.FaucetPort)
	require.Equal(t, rpc.CommitmentConfirmed, cfg.Commitment)
	require.Equal(t, DefaultReadyTimeout, cfg.ReadyTimeout)
	require.Equal(t, DefaultReadyPoll, cfg.ReadyPoll)
	require.Equal(t, "solana-test-validator", cfg.ValidatorBin)
	require.Equal(t, "http://127.0.0.1:8899", cfg.RPCURL())

	// RPCURL must also be callable on a Config value, eg the copy
	// returned by Validator.Config
	require.Equal(t, "http://127.0.0.1:8899", NewValidator(Config{}, nil).Config().RPCURL())
}

func TestValidatorArgs(t *testing.T) {
	program := solana.NewWallet().PublicKey()
	v := NewValidator(Config{
		RPCPort:    18899,
		FaucetPort: 19900,
		LedgerDir:  "/tmp/ledger",
		Programs:   []ProgramConfig{{Address: program, Path: "/tmp/staking.so"}},
		Reset:      true,
	}, nil)

	require.Equal(t, []string{
		"--bind-address", "127.0.0.1",
		"--rpc-port", "18899",
		"--faucet-port", "19900",
		"--ledger", "/tmp/ledger",
		"--bpf-program", program.String(), "/tmp/staking.so",
		"--reset",
	}, v.Args())
}

func TestValidatorArgs_NoResetNoLedger(t *testing.T) {
	v := NewValidator(Config{}, nil)
	args := v.Args()
	require.NotContains(t, args, "--reset")
	require.NotContains(t, args, "--ledger")
}

func TestRuntimeInfoRoundtrip(t *testing.T) {
	dir := t.TempDir()
	program := solana.NewWallet().PublicKey()
	cfg := Config{Programs: []ProgramConfig{{Address: program, Path: "staking.so"}}}
	cfg.applyDefaults()

	info := cfg.runtimeInfo()
	require.NoError(t, info.Write(dir))

	loaded, err := LoadRuntimeInfo(dir)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCURL(), loaded.Endpoint)
	require.Equal(t, rpc.CommitmentConfirmed, loaded.Commitment)
	require.Len(t, loaded.Programs, 1)
	require.Equal(t, program.String(), loaded.Programs[0].Address)

	_, err = LoadRuntimeInfo(t.TempDir())
	require.Error(t, err)
}

func TestWaitReady(t *testing.T) {
	t.Run("becomes healthy after a few polls", func(t *testing.T) {
		var calls int
		v := validatorWithMockNode(t, func() (any, error) {
			calls++
			if calls < 3 {
				return nil, fmt.Errorf("node is behind")
			}
			return "ok", nil
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, v.WaitReady(ctx))
		require.GreaterOrEqual(t, calls, 3)
	})

	t.Run("times out when never healthy", func(t *testing.T) {
		v := validatorWithMockNode(t, func() (any, error) {
			return nil, fmt.Errorf("node is behind")
		})
		err := v.WaitReady(context.Background())
		require.ErrorIs(t, err, ErrNotReady)
	})
}

// validatorWithMockNode wires a Validator against a fake node serving only
// the getHealth method.
func validatorWithMockNode(t *testing.T, health func() (any, error)) *Validator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "getHealth", req.Method)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if result, err := health(); err != nil {
			resp["error"] = map[string]any{"code": -32005, "message": err.Error()}
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return NewValidator(Config{
		BindAddr:     u.Hostname(),
		RPCPort:      port,
		ReadyTimeout: 500 * time.Millisecond,
		ReadyPoll:    10 * time.Millisecond,
	}, nil)
}

func TestValidatorLifecycle(t *testing.T) {
	t.Run("stop terminates the process", func(t *testing.T) {
		v := NewValidator(Config{
			RPCPort:      testnet.SharedPortManager.GetRandomFreePort(t),
			ValidatorBin: fakeValidator(t, "#!/bin/sh\ntrap 'exit 0' TERM\nwhile true; do sleep 0.1; done\n"),
		}, nil)
		require.NoError(t, v.Start(context.Background()))
		require.Error(t, v.Start(context.Background()), "second start must fail")

		require.NoError(t, v.Stop())
		test.TryTilCountIs(t, func() bool {
			select {
			case <-v.done:
				return true
			default:
				return false
			}
		}, 100, 10*time.Millisecond, "process did not exit")
	})

	t.Run("wait ready fails when the process exits", func(t *testing.T) {
		v := NewValidator(Config{
			RPCPort:      testnet.SharedPortManager.GetRandomFreePort(t),
			ReadyTimeout: 5 * time.Second,
			ReadyPoll:    10 * time.Millisecond,
			ValidatorBin: fakeValidator(t, "#!/bin/sh\nexit 1\n"),
		}, nil)
		require.NoError(t, v.Start(context.Background()))
		err := v.WaitReady(context.Background())
		require.ErrorIs(t, err, ErrNotReady)
		require.ErrorContains(t, err, "process exited")
	})

	t.Run("stop without start is a no-op", func(t *testing.T) {
		require.NoError(t, NewValidator(Config{}, nil).Stop())
	})
}

func fakeValidator(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-validator.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0700))
	return path
}

func TestBuilder(t *testing.T) {
	t.Run("artifact path is deterministic", func(t *testing.T) {
		b := &Builder{SourceDir: "/src/staking", ProgramName: "staking"}
		require.Equal(t, filepath.Join("/src/staking", "target", "deploy", "staking.so"), b.ArtifactPath())
	})

	t.Run("successful build produces artifact", func(t *testing.T) {
		dir := t.TempDir()
		b := &Builder{SourceDir: dir, ProgramName: "staking"}
		b.CargoBin = fakeCargo(t, dir, fmt.Sprintf(`#!/bin/sh
mkdir -p %q
touch %q
echo "Finished release"
`, filepath.Dir(b.ArtifactPath()), b.ArtifactPath()))

		artifact, err := b.Build(context.Background())
		require.NoError(t, err)
		require.Equal(t, b.ArtifactPath(), artifact)
		require.FileExists(t, artifact)
	})

	t.Run("failed build reports exit code", func(t *testing.T) {
		dir := t.TempDir()
		b := &Builder{
			SourceDir:   dir,
			ProgramName: "staking",
			CargoBin:    fakeCargo(t, dir, "#!/bin/sh\necho \"error: build failed\"\nexit 3\n"),
		}
		_, err := b.Build(context.Background())
		require.ErrorContains(t, err, "exited with code 3")
	})

	t.Run("missing artifact after build", func(t *testing.T) {
		dir := t.TempDir()
		b := &Builder{
			SourceDir:   dir,
			ProgramName: "staking",
			CargoBin:    fakeCargo(t, dir, "#!/bin/sh\nexit 0\n"),
		}
		_, err := b.Build(context.Background())
		require.ErrorContains(t, err, "artifact")
	})

	t.Run("unset source directory", func(t *testing.T) {
		_, err := (&Builder{ProgramName: "staking"}).Build(context.Background())
		require.ErrorContains(t, err, "source directory")
	})
}

func fakeCargo(t *testing.T, dir, script string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-cargo.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0700))
	return path
}
