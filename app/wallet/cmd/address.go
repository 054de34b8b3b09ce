package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address for the wallet",
	RunE:  addressRun,
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

func addressRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadKey()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), wallet.KeyAddress(privateKey))
	return nil
}
