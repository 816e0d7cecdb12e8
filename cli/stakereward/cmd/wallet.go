package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walker1992/stake-reward/wallet"
)

// newWalletCmd creates the command group managing wallet keys.
func newWalletCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "manage wallet accounts",
	}
	cmd.AddCommand(walletCreateCmd(baseConfig))
	cmd.AddCommand(walletAddKeyCmd(baseConfig))
	cmd.AddCommand(walletListKeysCmd(baseConfig))
	return cmd
}

func walletCreateCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "create a new wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWalletCreateCmd(cmd, baseConfig)
		},
	}
	cmd.Flags().StringP("seed", "s", "", "mnemonic seed, the number of words should be 12, 15, 18, 21 or 24")
	cmd.Flags().StringP(flagNamePassword, "p", "", passwordUsage)
	cmd.Flags().Bool(flagNamePromptPass, false, promptPasswordUsage)
	return cmd
}

func execWalletCreateCmd(cmd *cobra.Command, baseConfig *baseConfiguration) error {
	mnemonic, err := cmd.Flags().GetString("seed")
	if err != nil {
		return err
	}
	password, err := walletPassword(cmd)
	if err != nil {
		return err
	}

	am, err := wallet.NewManager(baseConfig.walletDir(), password, true)
	if err != nil {
		return err
	}
	defer am.Close()

	if err := am.CreateKeys(mnemonic); err != nil {
		return fmt.Errorf("creating keys: %w", err)
	}
	pubKey, err := am.GetPublicKey(0)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wallet successfully created")
	fmt.Fprintf(cmd.OutOrStdout(), "#0 %s\n", pubKey)
	if mnemonic == "" {
		storedMnemonic, err := am.GetMnemonic()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "The following mnemonic seed can be used to recover your wallet. Keep it safe:\n%s\n", storedMnemonic)
	}
	return nil
}

func walletAddKeyCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-key",
		Short: "derive the key of the next account index",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, err := loadWallet(cmd, baseConfig)
			if err != nil {
				return err
			}
			defer am.Close()

			key, err := am.AddAccount()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", key.Index, key.PubKey)
			return nil
		},
	}
	cmd.Flags().StringP(flagNamePassword, "p", "", passwordUsage)
	cmd.Flags().Bool(flagNamePromptPass, false, promptPasswordUsage)
	return cmd
}

func walletListKeysCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-keys",
		Short: "list wallet account public keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			am, err := loadWallet(cmd, baseConfig)
			if err != nil {
				return err
			}
			defer am.Close()

			keys, err := am.GetAccountKeys()
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", key.Index, key.PubKey)
			}
			return nil
		},
	}
	cmd.Flags().StringP(flagNamePassword, "p", "", passwordUsage)
	cmd.Flags().Bool(flagNamePromptPass, false, promptPasswordUsage)
	return cmd
}
