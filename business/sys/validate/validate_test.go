package validate_test

import (
	"testing"

	"github.com/utxoledger/ledger/business/sys/validate"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

type send struct {
	To     string `json:"to" validate:"required,address"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

func Test_Check(t *testing.T) {
	pk, err := wallet.Generate()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %v", err)
	}

	if err := validate.Check(send{To: wallet.KeyAddress(pk), Amount: 1}); err != nil {
		t.Fatalf("Should accept a valid value: %v", err)
	}

	err = validate.Check(send{To: "not-an-address", Amount: 0})
	if !validate.IsFieldErrors(err) {
		t.Fatalf("Should get field errors, got %v", err)
	}

	fields := validate.GetFieldErrors(err).Fields()
	if _, exists := fields["to"]; !exists {
		t.Fatalf("Should report the address by its json name, got %v", fields)
	}

	if _, exists := fields["amount"]; !exists {
		t.Fatalf("Should report the amount by its json name, got %v", fields)
	}
}
