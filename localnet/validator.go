package localnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/walker1992/stake-reward/client"
	"github.com/walker1992/stake-reward/logger"
)

// ErrNotReady is returned by WaitReady when the validator did not become
// healthy within the configured timeout.
var ErrNotReady = errors.New("validator startup failed, node did not become healthy")

const stopTimeout = 10 * time.Second

/*
Validator owns a solana-test-validator child process. The process is
spawned by Start, its lifetime is bound to the Validator value: Stop (or a
canceled Run context) terminates it. Readiness is observed by polling the
node health endpoint, never by waiting a fixed amount of time.
*/
type Validator struct {
	cfg Config
	log *slog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func NewValidator(cfg Config, log *slog.Logger) *Validator {
	cfg.applyDefaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Validator{cfg: cfg, log: log}
}

func (v *Validator) Config() Config { return v.cfg }

// RuntimeInfo returns the bootstrap record describing this network.
func (v *Validator) RuntimeInfo() *RuntimeInfo {
	return v.cfg.runtimeInfo()
}

// Args returns the validator command line built from the configuration.
func (v *Validator) Args() []string {
	args := []string{
		"--bind-address", v.cfg.BindAddr,
		"--rpc-port", strconv.Itoa(v.cfg.RPCPort),
		"--faucet-port", strconv.Itoa(v.cfg.FaucetPort),
	}
	if v.cfg.LedgerDir != "" {
		args = append(args, "--ledger", v.cfg.LedgerDir)
	}
	for _, p := range v.cfg.Programs {
		args = append(args, "--bpf-program", p.Address.String(), p.Path)
	}
	if v.cfg.Reset {
		args = append(args, "--reset")
	}
	return args
}

// Start spawns the validator process. It does not wait for the node to
// become healthy, use WaitReady for that.
func (v *Validator) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cmd != nil {
		return errors.New("validator is already started")
	}

	cmd := exec.Command(v.cfg.ValidatorBin, v.Args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	v.log.InfoContext(ctx, fmt.Sprintf("starting %s on %s", v.cfg.ValidatorBin, v.cfg.RPCURL()), logger.Module("localnet"))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", v.cfg.ValidatorBin, err)
	}
	v.cmd = cmd
	v.done = make(chan struct{})

	go streamOutput(ctx, v.log, stdout)
	go func() {
		err := cmd.Wait()
		v.mu.Lock()
		v.err = err
		v.mu.Unlock()
		close(v.done)
	}()
	return nil
}

/*
WaitReady polls the node health endpoint until the validator reports
itself healthy. It fails with ErrNotReady when the configured ready
timeout elapses first and immediately when the process exits.
*/
func (v *Validator) WaitReady(ctx context.Context) error {
	rpcClient, err := client.New(client.Config{
		Endpoint:   v.cfg.RPCURL(),
		Commitment: v.cfg.Commitment,
		Logger:     v.log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(v.cfg.ReadyPoll)
	defer ticker.Stop()

	v.mu.Lock()
	done := v.done
	v.mu.Unlock()

	for {
		if err := rpcClient.Health(ctx); err == nil {
			v.log.InfoContext(ctx, "validator is healthy", logger.Module("localnet"))
			return nil
		} else {
			v.log.DebugContext(ctx, "validator not healthy yet", logger.Module("localnet"), logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrNotReady, ctx.Err())
		case <-done:
			return fmt.Errorf("%w: process exited: %s", ErrNotReady, v.exitError())
		case <-ticker.C:
		}
	}
}

// Stop terminates the validator process, first with SIGTERM, with SIGKILL
// if it does not exit within the stop timeout.
func (v *Validator) Stop() error {
	v.mu.Lock()
	cmd, done := v.cmd, v.done
	v.mu.Unlock()
	if cmd == nil {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("terminating validator: %w", err)
	}
	select {
	case <-done:
	case <-time.After(stopTimeout):
		v.log.Warn("validator did not exit on SIGTERM, killing it", logger.Module("localnet"))
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("killing validator: %w", err)
		}
		<-done
	}
	return nil
}

/*
Run starts the validator, waits until it is healthy and then blocks until
the context is canceled or the process exits on its own. The process is
stopped before Run returns.
*/
func (v *Validator) Run(ctx context.Context) error {
	if err := v.Start(ctx); err != nil {
		return err
	}
	if err := v.WaitReady(ctx); err != nil {
		_ = v.Stop()
		return err
	}

	v.mu.Lock()
	done := v.done
	v.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return v.Stop()
		case <-done:
			if err := v.exitError(); err != nil {
				return fmt.Errorf("validator exited: %w", err)
			}
			return errors.New("validator exited")
		}
	})
	return g.Wait()
}

func (v *Validator) exitError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
