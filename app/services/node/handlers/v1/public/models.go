package public

import (
	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

type status struct {
	Tip        string `json:"tip"`
	Entries    int    `json:"entries"`
	TotalValue int64  `json:"total_value"`
}

type output struct {
	Index   int32  `json:"index"`
	Value   int64  `json:"value"`
	Address string `json:"address"`
	Name    string `json:"name"`
}

type input struct {
	TxID        string `json:"txid"`
	OutputIndex int32  `json:"vout"`
	Address     string `json:"address,omitempty"`
}

type tx struct {
	ID         string   `json:"id"`
	Coinbase   bool     `json:"coinbase"`
	Memo       string   `json:"memo,omitempty"`
	Inputs     []input  `json:"inputs"`
	Outputs    []output `json:"outputs"`
	CreateTime int64    `json:"create_time"`
}

type block struct {
	Hash          string `json:"hash"`
	PrevBlockHash string `json:"prev_block_hash"`
	MerkleRoot    string `json:"merkle_root"`
	TimeStamp     int64  `json:"timestamp"`
	TargetBits    uint64 `json:"target_bits"`
	Nonce         uint64 `json:"nonce"`
	ValidPOW      bool   `json:"valid_pow"`
	ValidHash     bool   `json:"valid_hash"`
	ValidMerkle   bool   `json:"valid_merkle"`
	Trans         []tx   `json:"trans"`
}

// SendRequest is what a client posts to move value between wallets held
// by the node.
type SendRequest struct {
	From   string `json:"from" validate:"required,address"`
	To     string `json:"to" validate:"required,address"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

// =============================================================================

func toTx(lookup func(string) string, dbTx database.Tx) tx {
	t := tx{
		ID:         dbTx.ID.String(),
		Coinbase:   dbTx.IsCoinbase(),
		Inputs:     make([]input, 0, len(dbTx.Inputs)),
		Outputs:    make([]output, len(dbTx.Outputs)),
		CreateTime: dbTx.CreateTime,
	}

	if t.Coinbase {
		t.Memo = string(dbTx.Inputs[0].PubKey)
	} else {
		for _, in := range dbTx.Inputs {
			t.Inputs = append(t.Inputs, input{
				TxID:        in.TxID.String(),
				OutputIndex: in.OutputIndex,
				Address:     wallet.Address(in.PubKey),
			})
		}
	}

	for i, out := range dbTx.Outputs {
		address := wallet.EncodeAddress(wallet.Version, out.PubKeyHash)
		t.Outputs[i] = output{
			Index:   int32(i),
			Value:   out.Value,
			Address: address,
			Name:    lookup(address),
		}
	}

	return t
}

func toBlock(lookup func(string) string, report chain.BlockReport) block {
	b := block{
		Hash:          report.Block.Hash.String(),
		PrevBlockHash: report.Block.Header.PrevBlockHash.String(),
		MerkleRoot:    report.Block.Header.MerkleRoot.String(),
		TimeStamp:     report.Block.Header.TimeStamp,
		TargetBits:    report.Block.Header.TargetBits,
		Nonce:         report.Block.Header.Nonce,
		ValidPOW:      report.ValidPOW,
		ValidHash:     report.ValidHash,
		ValidMerkle:   report.ValidMerkle,
		Trans:         make([]tx, len(report.Block.Trans)),
	}

	for i, dbTx := range report.Block.Trans {
		b.Trans[i] = toTx(lookup, dbTx)
	}

	return b
}
