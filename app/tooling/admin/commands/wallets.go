package commands

import (
	"context"
	"fmt"

	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

// CreateWallet generates a key saved under the name and prints its address.
func CreateWallet(wallets *wallet.Wallets, name string) error {
	address, err := wallets.Create(name)
	if err != nil {
		return err
	}

	fmt.Printf("Your new address: %s\n", address)
	return nil
}

// Addresses prints the address and name of every wallet.
func Addresses(wallets *wallet.Wallets) {
	for _, address := range wallets.Addresses() {
		fmt.Printf("%s  %s\n", address, wallets.Lookup(address))
	}
}

// Send moves amount from the wallet holding the from address and mines the
// block right away, paying the reward to the sender.
func Send(ctx context.Context, chn *chain.Chain, wallets *wallet.Wallets, from string, to string, amount int64) error {
	privateKey, err := wallets.Key(from)
	if err != nil {
		return err
	}

	fromHash, err := wallet.AddressToPubKeyHash(from)
	if err != nil {
		return err
	}

	toHash, err := wallet.AddressToPubKeyHash(to)
	if err != nil {
		return err
	}

	block, err := chn.Send(ctx, privateKey, toHash, amount, fromHash)
	if err != nil {
		return err
	}

	fmt.Printf("Success! Block: %s\n", block.Hash)
	return nil
}
