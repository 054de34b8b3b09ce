package main

import "github.com/utxoledger/ledger/app/wallet/cmd"

func main() {
	cmd.Execute()
}
