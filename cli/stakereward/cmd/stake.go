package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const flagNameLamports = "lamports"

func newStakeCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stake",
		Short: "deposit tokens into a staking pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			key, err := accountKeyFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			tokenAcct, err := publicKeyFlag(cmd, flagNameTokenAcct)
			if err != nil {
				return err
			}
			poolIndex, err := cmd.Flags().GetUint64(flagNamePool)
			if err != nil {
				return err
			}
			amount, err := cmd.Flags().GetUint64(flagNameAmountToken)
			if err != nil {
				return err
			}
			sig, err := c.Stake(cmd.Context(), key.PrivKey, tokenAcct, poolIndex, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "staked %d into pool #%d, tx %s\n", amount, poolIndex, sig)
			return nil
		},
	}
	addClientFlags(cmd)
	addWalletFlags(cmd)
	cmd.Flags().Uint64(flagNamePool, 0, "pool index")
	cmd.Flags().String(flagNameTokenAcct, "", "token account the stake is transferred from")
	cmd.Flags().Uint64(flagNameAmountToken, 0, "amount to stake")
	_ = cmd.MarkFlagRequired(flagNameTokenAcct)
	_ = cmd.MarkFlagRequired(flagNameAmountToken)
	return cmd
}

func newUnstakeCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unstake",
		Short: "withdraw tokens from a staking pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			key, err := accountKeyFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			tokenAcct, err := publicKeyFlag(cmd, flagNameTokenAcct)
			if err != nil {
				return err
			}
			poolIndex, err := cmd.Flags().GetUint64(flagNamePool)
			if err != nil {
				return err
			}
			amount, err := cmd.Flags().GetUint64(flagNameAmountToken)
			if err != nil {
				return err
			}
			sig, err := c.Unstake(cmd.Context(), key.PrivKey, tokenAcct, poolIndex, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrew %d from pool #%d, tx %s\n", amount, poolIndex, sig)
			return nil
		},
	}
	addClientFlags(cmd)
	addWalletFlags(cmd)
	cmd.Flags().Uint64(flagNamePool, 0, "pool index")
	cmd.Flags().String(flagNameTokenAcct, "", "token account the stake is returned to")
	cmd.Flags().Uint64(flagNameAmountToken, 0, "amount to withdraw")
	_ = cmd.MarkFlagRequired(flagNameTokenAcct)
	_ = cmd.MarkFlagRequired(flagNameAmountToken)
	return cmd
}

// newClaimCmd creates the command group for claiming and inspecting rewards.
func newClaimCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewards",
		Short: "claim and inspect staking rewards",
	}
	cmd.AddCommand(claimRewardCmd(baseConfig))
	cmd.AddCommand(pendingRewardCmd(baseConfig))
	return cmd
}

func claimRewardCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "claim the accrued reward of a pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			key, err := accountKeyFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			tokenAcct, err := publicKeyFlag(cmd, flagNameTokenAcct)
			if err != nil {
				return err
			}
			rewardAcct, err := publicKeyFlag(cmd, flagNameRewardAcct)
			if err != nil {
				return err
			}
			poolIndex, err := cmd.Flags().GetUint64(flagNamePool)
			if err != nil {
				return err
			}
			sig, err := c.ClaimReward(cmd.Context(), key.PrivKey, tokenAcct, rewardAcct, poolIndex)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reward of pool #%d claimed, tx %s\n", poolIndex, sig)
			return nil
		},
	}
	addClientFlags(cmd)
	addWalletFlags(cmd)
	cmd.Flags().Uint64(flagNamePool, 0, "pool index")
	cmd.Flags().String(flagNameTokenAcct, "", "token account the stake was made from")
	cmd.Flags().String(flagNameRewardAcct, "", "token account the reward is paid to")
	_ = cmd.MarkFlagRequired(flagNameTokenAcct)
	_ = cmd.MarkFlagRequired(flagNameRewardAcct)
	return cmd
}

func pendingRewardCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "print the claimable reward of a pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			tokenAcct, err := publicKeyFlag(cmd, flagNameTokenAcct)
			if err != nil {
				return err
			}
			poolIndex, err := cmd.Flags().GetUint64(flagNamePool)
			if err != nil {
				return err
			}
			pending, err := c.PendingReward(cmd.Context(), poolIndex, tokenAcct)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pending)
			return nil
		},
	}
	addClientFlags(cmd)
	cmd.Flags().Uint64(flagNamePool, 0, "pool index")
	cmd.Flags().String(flagNameTokenAcct, "", "token account the stake was made from")
	_ = cmd.MarkFlagRequired(flagNameTokenAcct)
	return cmd
}

func newAirdropCmd(baseConfig *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "request test SOL for a wallet account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			key, err := accountKeyFromFlags(cmd, baseConfig)
			if err != nil {
				return err
			}
			lamports, err := cmd.Flags().GetUint64(flagNameLamports)
			if err != nil {
				return err
			}
			sig, err := c.Airdrop(cmd.Context(), key.PubKey, lamports)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "airdropped %d lamports to %s, tx %s\n", lamports, key.PubKey, sig)
			return nil
		},
	}
	addClientFlags(cmd)
	addWalletFlags(cmd)
	cmd.Flags().Uint64(flagNameLamports, 1_000_000_000, "amount of lamports to request")
	return cmd
}
