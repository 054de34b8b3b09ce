package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair and print its address",
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) error {
	wallets, err := wallet.NewWallets(walletPath)
	if err != nil {
		return err
	}

	address, err := wallets.Create(walletName)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), address)
	return nil
}
