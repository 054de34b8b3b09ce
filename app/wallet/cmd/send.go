package cmd

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/utxo"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

var (
	to     string
	amount int64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a transaction locally and submit it to the node",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the receiver.")
	sendCmd.Flags().Int64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadKey()
	if err != nil {
		return err
	}

	toHash, err := wallet.AddressToPubKeyHash(to)
	if err != nil {
		return err
	}

	clt := newClient(url)

	tx, err := buildSpend(cmd.Context(), clt, privateKey, toHash, amount)
	if err != nil {
		return err
	}

	var blk struct {
		Hash string `json:"hash"`
	}
	if err := clt.post(cmd.Context(), "/v1/tx/submit", tx, &blk); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "tx[%s] mined in block[%s]\n", tx.ID, blk.Hash)
	return nil
}

// buildSpend selects outputs from the node's listing for the sender, signs
// every input against the prior transactions fetched from the node, and
// returns the finished transaction.
func buildSpend(ctx context.Context, clt *client, privateKey *ecdsa.PrivateKey, toHash []byte, amount int64) (database.Tx, error) {
	pubKey := wallet.PublicKeyBytes(privateKey)

	var listing utxo.Set
	if err := clt.get(ctx, "/v1/utxos/"+wallet.Address(pubKey), &listing); err != nil {
		return database.Tx{}, err
	}

	tx, err := database.NewSpendTx(pubKey, toHash, amount, listing)
	if err != nil {
		return database.Tx{}, err
	}

	priors := make(map[database.Hash]database.Tx)
	for _, in := range tx.Inputs {
		if _, exists := priors[in.TxID]; exists {
			continue
		}

		var prior database.Tx
		if err := clt.get(ctx, "/v1/tx/"+in.TxID.String(), &prior); err != nil {
			return database.Tx{}, fmt.Errorf("fetching prior tx[%s]: %w", in.TxID, err)
		}
		priors[in.TxID] = prior
	}

	if err := tx.Sign(privateKey, priors); err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}
