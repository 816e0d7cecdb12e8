package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walker1992/stake-reward/localnet"
)

const (
	flagNameProgramDir  = "program-dir"
	flagNameProgramName = "program-name"
	flagNameCargoBin    = "cargo-bin"

	defaultProgramName = "staking"
)

// newBuildCmd creates the command compiling the staking program artifact.
func newBuildCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "compile the staking program into a SBF artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execBuildCmd(cmd, baseConfig)
		},
	}
	cmd.Flags().String(flagNameProgramDir, "", "program crate root, the directory holding Cargo.toml")
	cmd.Flags().String(flagNameProgramName, defaultProgramName, "program crate library name")
	cmd.Flags().String(flagNameCargoBin, "", "cargo executable to use (default \"cargo\")")
	_ = cmd.MarkFlagRequired(flagNameProgramDir)
	return cmd
}

func execBuildCmd(cmd *cobra.Command, baseConfig *baseConfiguration) error {
	builder, err := builderFromFlags(cmd, baseConfig)
	if err != nil {
		return err
	}
	artifact, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), artifact)
	return nil
}

func builderFromFlags(cmd *cobra.Command, baseConfig *baseConfiguration) (*localnet.Builder, error) {
	sourceDir, err := cmd.Flags().GetString(flagNameProgramDir)
	if err != nil {
		return nil, err
	}
	programName, err := cmd.Flags().GetString(flagNameProgramName)
	if err != nil {
		return nil, err
	}
	cargoBin, err := cmd.Flags().GetString(flagNameCargoBin)
	if err != nil {
		return nil, err
	}
	return &localnet.Builder{
		SourceDir:   sourceDir,
		ProgramName: programName,
		CargoBin:    cargoBin,
		Log:         baseConfig.Logger(),
	}, nil
}
