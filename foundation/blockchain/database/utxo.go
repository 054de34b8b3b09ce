package database

import "fmt"

// OutPoint identifies a single output of a transaction.
type OutPoint struct {
	TxID  Hash  `json:"txid"`
	Index int32 `json:"index"`
}

// String implements the fmt.Stringer interface.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Index)
}

// UTXO represents an unspent output along with its position inside the
// transaction that produced it.
type UTXO struct {
	Index  int32    `json:"index"`
	Output TxOutput `json:"output"`
}
