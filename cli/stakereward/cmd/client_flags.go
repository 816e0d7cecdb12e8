package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/walker1992/stake-reward/client"
	"github.com/walker1992/stake-reward/localnet"
	"github.com/walker1992/stake-reward/wallet"
)

const (
	flagNameRPCURL      = "rpc-url"
	flagNamePassword    = "password"
	flagNamePromptPass  = "password-prompt"
	flagNameAccountIdx  = "account"
	passwordUsage       = "wallet password used to encrypt sensitive data"
	promptPasswordUsage = "prompt for the wallet password instead of passing it as a flag"
)

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flagNameRPCURL, "u", "", "node RPC url (default is the endpoint recorded by \"start\")")
}

func addWalletFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flagNamePassword, "p", "", passwordUsage)
	cmd.Flags().Bool(flagNamePromptPass, false, promptPasswordUsage)
	cmd.Flags().Uint64P(flagNameAccountIdx, "k", 0, "wallet account index to use")
}

/*
clientFromFlags builds the staking client. The endpoint comes from the
--rpc-url flag when given, otherwise from the runtime info file written by
the "start" command.
*/
func clientFromFlags(cmd *cobra.Command, baseConfig *baseConfiguration) (*client.Client, error) {
	cfg := client.Config{Logger: baseConfig.Logger()}

	endpoint, err := cmd.Flags().GetString(flagNameRPCURL)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	} else {
		info, err := localnet.LoadRuntimeInfo(baseConfig.HomeDir)
		if err != nil {
			return nil, fmt.Errorf("no --%s given and no running local network found: %w", flagNameRPCURL, err)
		}
		cfg.Endpoint = info.Endpoint
		cfg.Commitment = info.Commitment
	}
	return client.New(cfg)
}

func walletPassword(cmd *cobra.Command) (string, error) {
	password, err := cmd.Flags().GetString(flagNamePassword)
	if err != nil {
		return "", err
	}
	prompt, err := cmd.Flags().GetBool(flagNamePromptPass)
	if err != nil {
		return "", err
	}
	if !prompt {
		return password, nil
	}
	if password != "" {
		return "", errors.New("--password and --password-prompt are mutually exclusive")
	}
	fmt.Fprint(cmd.OutOrStdout(), "wallet password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(passwordBytes), nil
}

func loadWallet(cmd *cobra.Command, baseConfig *baseConfiguration) (wallet.Manager, error) {
	password, err := walletPassword(cmd)
	if err != nil {
		return nil, err
	}
	return wallet.NewManager(baseConfig.walletDir(), password, false)
}

func accountKeyFromFlags(cmd *cobra.Command, baseConfig *baseConfiguration) (*wallet.AccountKey, error) {
	am, err := loadWallet(cmd, baseConfig)
	if err != nil {
		return nil, err
	}
	defer am.Close()

	index, err := cmd.Flags().GetUint64(flagNameAccountIdx)
	if err != nil {
		return nil, err
	}
	return am.GetAccountKey(index)
}
