// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// Usage prints the set of supported commands.
func Usage() {
	fmt.Println(`Usage: admin <command> [args]

  createwallet <name>            generate a key and save it in the wallets folder
  addresses                      list the addresses in the wallets folder
  create <address>               mine the genesis block paying the address
  print                          print every block from the tip to genesis
  validate                       check every block and the links between them
  reindex                        rebuild the unspent output index
  balance <address>              print the balance of the address
  send <from> <to> <amount>      move value from a wallet and mine the block`)
}

// Create mines the genesis block paying the subsidy to the address. An
// existing chain is left as is.
func Create(ctx context.Context, cfg chain.Config, address string) error {
	to, err := wallet.AddressToPubKeyHash(address)
	if err != nil {
		return err
	}

	chn, err := chain.Create(ctx, cfg, to)
	if err != nil {
		return err
	}

	tip, err := chn.Tip()
	if err != nil {
		return err
	}

	fmt.Printf("Done! Tip: %s\n", tip)
	return nil
}

// Reindex rebuilds the unspent output index from the chain.
func Reindex(ctx context.Context, chn *chain.Chain) error {
	count, err := chn.Reindex(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Done! There are %d transactions in the UTXO set.\n", count)
	return nil
}

// Balance prints the balance of the address.
func Balance(chn *chain.Chain, address string) error {
	pubKeyHash, err := wallet.AddressToPubKeyHash(address)
	if err != nil {
		return err
	}

	bal, err := chn.Balance(pubKeyHash)
	if err != nil {
		return err
	}

	fmt.Printf("Balance of '%s': %d\n", address, bal)
	return nil
}

// Validate audits every block from the tip to genesis.
func Validate(chn *chain.Chain) error {
	if err := chn.ValidateChain(); err != nil {
		return err
	}

	fmt.Println("Chain is valid")
	return nil
}
