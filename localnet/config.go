package localnet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Defaults mirror the solana-test-validator conventions.
const (
	DefaultRPCPort    = 8899
	DefaultFaucetPort = 9900
	DefaultBindAddr   = "127.0.0.1"

	DefaultReadyTimeout = 60 * time.Second
	DefaultReadyPoll    = 500 * time.Millisecond

	defaultValidatorBin = "solana-test-validator"
)

type (
	// ProgramConfig names a program artifact to preload and the address to
	// load it at.
	ProgramConfig struct {
		Address solana.PublicKey
		Path    string
	}

	/*
	   Config is the explicit local network configuration. It is passed to
	   the validator and recorded in the runtime info file for client
	   commands, nothing here is process global state.
	*/
	Config struct {
		BindAddr   string
		RPCPort    int
		FaucetPort int
		LedgerDir  string
		Programs   []ProgramConfig
		// Reset wipes any previous ledger state on startup.
		Reset      bool
		Commitment rpc.CommitmentType

		// ReadyTimeout bounds how long Start waits for the validator to
		// report itself healthy before giving up.
		ReadyTimeout time.Duration
		ReadyPoll    time.Duration

		// ValidatorBin overrides the solana-test-validator executable.
		ValidatorBin string
	}

	// RuntimeInfo is the bootstrap record written for client commands, the
	// explicit replacement for mutating a global CLI configuration.
	RuntimeInfo struct {
		Endpoint   string             `json:"endpoint"`
		Commitment rpc.CommitmentType `json:"commitment"`
		Programs   []ProgramInfo      `json:"programs"`
		LedgerDir  string             `json:"ledgerDir"`
		StartedAt  time.Time          `json:"startedAt"`
	}

	ProgramInfo struct {
		Address string `json:"address"`
		Path    string `json:"path"`
	}
)

const runtimeInfoFileName = "localnet.json"

func (c *Config) applyDefaults() {
	if c.BindAddr == "" {
		c.BindAddr = DefaultBindAddr
	}
	if c.RPCPort == 0 {
		c.RPCPort = DefaultRPCPort
	}
	if c.FaucetPort == 0 {
		c.FaucetPort = DefaultFaucetPort
	}
	if c.Commitment == "" {
		c.Commitment = rpc.CommitmentConfirmed
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = DefaultReadyTimeout
	}
	if c.ReadyPoll <= 0 {
		c.ReadyPoll = DefaultReadyPoll
	}
	if c.ValidatorBin == "" {
		c.ValidatorBin = defaultValidatorBin
	}
}

// RPCURL returns the http endpoint of the validator RPC interface.
func (c Config) RPCURL() string {
	return fmt.Sprintf("http://%s:%d", c.BindAddr, c.RPCPort)
}

func (c *Config) runtimeInfo() *RuntimeInfo {
	info := &RuntimeInfo{
		Endpoint:   c.RPCURL(),
		Commitment: c.Commitment,
		LedgerDir:  c.LedgerDir,
		StartedAt:  time.Now(),
	}
	for _, p := range c.Programs {
		info.Programs = append(info.Programs, ProgramInfo{Address: p.Address.String(), Path: p.Path})
	}
	return info
}

// Write records the bootstrap result under dir.
func (info *RuntimeInfo) Write(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating runtime info directory: %w", err)
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing runtime info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, runtimeInfoFileName), data, 0600); err != nil {
		return fmt.Errorf("writing runtime info: %w", err)
	}
	return nil
}

// LoadRuntimeInfo reads the bootstrap record written by a previous Start.
func LoadRuntimeInfo(dir string) (*RuntimeInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, runtimeInfoFileName))
	if err != nil {
		return nil, fmt.Errorf("reading runtime info: %w", err)
	}
	info := &RuntimeInfo{}
	if err := json.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("parsing runtime info: %w", err)
	}
	return info, nil
}
