package commands

import (
	"fmt"

	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

// Print writes every block from the tip to genesis along with the result of
// checking its proof of work.
func Print(chn *chain.Chain) error {
	return chn.ForEachBlock(func(block database.Block) error {
		report := chain.NewBlockReport(block, chn.Genesis().TargetBits)

		fmt.Printf("============ Block %s ============\n", block.Hash)
		fmt.Printf("Prev. block: %s\n", block.Header.PrevBlockHash)
		fmt.Printf("Merkle root: %s\n", block.Header.MerkleRoot)
		fmt.Printf("Timestamp:   %d\n", block.Header.TimeStamp)
		fmt.Printf("Bits:        %d\n", block.Header.TargetBits)
		fmt.Printf("Nonce:       %d\n", block.Header.Nonce)
		fmt.Printf("PoW: %t  Hash: %t  Merkle: %t\n", report.ValidPOW, report.ValidHash, report.ValidMerkle)

		for _, tx := range block.Trans {
			printTx(tx)
		}
		fmt.Println()

		return nil
	})
}

func printTx(tx database.Tx) {
	fmt.Printf("--- Transaction %s:\n", tx.ID)

	for i, in := range tx.Inputs {
		if tx.IsCoinbase() {
			fmt.Printf("     Input %d: coinbase %q\n", i, in.PubKey)
			continue
		}
		fmt.Printf("     Input %d: txid %s  vout %d  from %s\n", i, in.TxID, in.OutputIndex, wallet.Address(in.PubKey))
	}

	for i, out := range tx.Outputs {
		fmt.Printf("     Output %d: value %d  to %s\n", i, out.Value, wallet.EncodeAddress(wallet.Version, out.PubKeyHash))
	}
}
