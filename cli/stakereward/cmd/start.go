package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/walker1992/stake-reward/localnet"
	"github.com/walker1992/stake-reward/staking"
)

const (
	flagNameRPCPort      = "rpc-port"
	flagNameFaucetPort   = "faucet-port"
	flagNameLedgerDir    = "ledger-dir"
	flagNameProgramSo    = "program"
	flagNameNoReset      = "no-reset"
	flagNameReadyTimeout = "ready-timeout"
	flagNameValidatorBin = "validator-bin"
	flagNameSkipBuild    = "skip-build"
)

/*
newStartCmd creates the command bootstrapping the local network: build the
program (unless skipped or a prebuilt artifact is given), launch the
validator with the program preloaded, wait until the node is healthy and
record the network endpoint for the client commands.
*/
func newStartCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start a local validator with the staking program preloaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execStartCmd(cmd, baseConfig)
		},
	}
	cmd.Flags().Int(flagNameRPCPort, localnet.DefaultRPCPort, "validator JSON-RPC port")
	cmd.Flags().Int(flagNameFaucetPort, localnet.DefaultFaucetPort, "validator faucet port")
	cmd.Flags().String(flagNameLedgerDir, "", "ledger directory (default $SR_HOME/ledger)")
	cmd.Flags().String(flagNameProgramSo, "", "prebuilt program artifact (.so) to load, skips the build")
	cmd.Flags().Bool(flagNameNoReset, false, "keep the previous ledger state instead of resetting it")
	cmd.Flags().Duration(flagNameReadyTimeout, localnet.DefaultReadyTimeout, "how long to wait for the validator to become healthy")
	cmd.Flags().String(flagNameValidatorBin, "", "validator executable to use (default \"solana-test-validator\")")
	cmd.Flags().Bool(flagNameSkipBuild, false, "do not build, requires --program")
	cmd.Flags().String(flagNameProgramDir, "", "program crate root, the directory holding Cargo.toml")
	cmd.Flags().String(flagNameProgramName, defaultProgramName, "program crate library name")
	cmd.Flags().String(flagNameCargoBin, "", "cargo executable to use (default \"cargo\")")
	return cmd
}

func execStartCmd(cmd *cobra.Command, baseConfig *baseConfiguration) error {
	ctx := cmd.Context()
	log := baseConfig.Logger()

	artifact, err := cmd.Flags().GetString(flagNameProgramSo)
	if err != nil {
		return err
	}
	skipBuild, err := cmd.Flags().GetBool(flagNameSkipBuild)
	if err != nil {
		return err
	}
	if artifact == "" {
		if skipBuild {
			return fmt.Errorf("--%s requires --%s", flagNameSkipBuild, flagNameProgramSo)
		}
		builder, err := builderFromFlags(cmd, baseConfig)
		if err != nil {
			return err
		}
		if builder.SourceDir == "" {
			return fmt.Errorf("either --%s or --%s must be given", flagNameProgramSo, flagNameProgramDir)
		}
		if artifact, err = builder.Build(ctx); err != nil {
			return fmt.Errorf("building program: %w", err)
		}
	}

	cfg, err := validatorConfigFromFlags(cmd, baseConfig, artifact)
	if err != nil {
		return err
	}
	validator := localnet.NewValidator(cfg, log)

	if err := validator.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := validator.Stop(); err != nil {
			log.Warn(fmt.Sprintf("stopping validator: %v", err))
		}
	}()
	if err := validator.WaitReady(ctx); err != nil {
		return err
	}
	if err := validator.RuntimeInfo().Write(baseConfig.HomeDir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "local network ready at %s\n", validator.Config().RPCURL())

	// block until interrupted, the deferred Stop takes the validator down
	<-ctx.Done()
	return nil
}

func validatorConfigFromFlags(cmd *cobra.Command, baseConfig *baseConfiguration, artifact string) (localnet.Config, error) {
	cfg := localnet.Config{
		Programs: []localnet.ProgramConfig{{Address: staking.ProgramID, Path: artifact}},
	}
	var err error
	if cfg.RPCPort, err = cmd.Flags().GetInt(flagNameRPCPort); err != nil {
		return cfg, err
	}
	if cfg.FaucetPort, err = cmd.Flags().GetInt(flagNameFaucetPort); err != nil {
		return cfg, err
	}
	if cfg.LedgerDir, err = cmd.Flags().GetString(flagNameLedgerDir); err != nil {
		return cfg, err
	}
	if cfg.LedgerDir == "" {
		cfg.LedgerDir = filepath.Join(baseConfig.HomeDir, "ledger")
	}
	noReset, err := cmd.Flags().GetBool(flagNameNoReset)
	if err != nil {
		return cfg, err
	}
	cfg.Reset = !noReset
	var readyTimeout time.Duration
	if readyTimeout, err = cmd.Flags().GetDuration(flagNameReadyTimeout); err != nil {
		return cfg, err
	}
	cfg.ReadyTimeout = readyTimeout
	if cfg.ValidatorBin, err = cmd.Flags().GetString(flagNameValidatorBin); err != nil {
		return cfg, err
	}
	return cfg, nil
}
