package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

var balanceAddress string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance for the wallet or an address",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceAddress, "address", "a", "", "Address to query instead of the wallet.")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	address := balanceAddress
	if address == "" {
		privateKey, err := loadKey()
		if err != nil {
			return err
		}
		address = wallet.KeyAddress(privateKey)
	}

	var bal balance
	if err := newClient(url).get(cmd.Context(), "/v1/balance/"+address, &bal); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Balance of '%s': %d\n", bal.Address, bal.Balance)
	return nil
}
