package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/utxoledger/ledger/app/services/node/handlers"
	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/genesis"
	"github.com/utxoledger/ledger/foundation/blockchain/storage/memory"
	"github.com/utxoledger/ledger/foundation/blockchain/utxo"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
	"github.com/utxoledger/ledger/foundation/events"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type apiTest struct {
	app      http.Handler
	chain    *chain.Chain
	wallets  *wallet.Wallets
	miner    string
	alice    string
	minerPKH []byte
}

func newAPITest(t *testing.T) *apiTest {
	wallets, err := wallet.NewWallets(t.TempDir())
	if err != nil {
		t.Fatalf("Should be able to create the wallets: %v", err)
	}

	miner, err := wallets.Create("miner1")
	if err != nil {
		t.Fatalf("Should be able to create the miner wallet: %v", err)
	}

	alice, err := wallets.Create("alice")
	if err != nil {
		t.Fatalf("Should be able to create the alice wallet: %v", err)
	}

	minerPKH, _ := wallet.AddressToPubKeyHash(miner)

	gen := genesis.Default()
	gen.TargetBits = 8

	chn, err := chain.Create(context.Background(), chain.Config{Storage: memory.New(), Genesis: gen}, minerPKH)
	if err != nil {
		t.Fatalf("Should be able to create the chain: %v", err)
	}

	app := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:    make(chan os.Signal, 1),
		Log:         zap.NewNop().Sugar(),
		Chain:       chn,
		Wallets:     wallets,
		Miner:       minerPKH,
		MineTimeout: 30 * time.Second,
		Evts:        events.New(),
	})

	return &apiTest{
		app:      app,
		chain:    chn,
		wallets:  wallets,
		miner:    miner,
		alice:    alice,
		minerPKH: minerPKH,
	}
}

func (at *apiTest) do(t *testing.T, method string, path string, body any, v any) int {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			t.Fatalf("Should be able to marshal the body: %v", err)
		}
	}

	r := httptest.NewRequest(method, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	at.app.ServeHTTP(w, r)

	if v != nil && w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(v); err != nil {
			t.Fatalf("Should be able to decode the response for %s: %v", path, err)
		}
	}

	return w.Code
}

func (at *apiTest) balance(t *testing.T, address string) int64 {
	var bal struct {
		Balance int64 `json:"balance"`
	}
	if code := at.do(t, http.MethodGet, "/v1/balance/"+address, nil, &bal); code != http.StatusOK {
		t.Fatalf("Should get a 200 for the balance of %s, got %d", address, code)
	}

	return bal.Balance
}

// =============================================================================

func Test_PublicAPI(t *testing.T) {
	at := newAPITest(t)

	t.Log("Given the need to drive the ledger over the public api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen reading the state after genesis.", testID)
		{
			var st struct {
				Tip        string `json:"tip"`
				Entries    int    `json:"entries"`
				TotalValue int64  `json:"total_value"`
			}
			if code := at.do(t, http.MethodGet, "/v1/status", nil, &st); code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould get a 200 for the status, got %d.", failed, testID, code)
			}
			if st.Entries != 1 || st.TotalValue != genesis.DefaultSubsidy {
				t.Fatalf("\t%s\tTest %d:\tShould have one entry holding the subsidy, got %+v.", failed, testID, st)
			}
			t.Logf("\t%s\tTest %d:\tShould have one entry holding the subsidy.", success, testID)

			if bal := at.balance(t, at.miner); bal != genesis.DefaultSubsidy {
				t.Fatalf("\t%s\tTest %d:\tShould have the subsidy for the miner, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould have the subsidy for the miner.", success, testID)

			if code := at.do(t, http.MethodGet, "/v1/balance/not-an-address", nil, nil); code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould get a 400 for a bad address, got %d.", failed, testID, code)
			}
			t.Logf("\t%s\tTest %d:\tShould get a 400 for a bad address.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the miner sends 4 to alice through the node.", testID)
		{
			req := map[string]any{"from": at.miner, "to": at.alice, "amount": 4}

			var blk struct {
				Hash        string `json:"hash"`
				ValidPOW    bool   `json:"valid_pow"`
				ValidMerkle bool   `json:"valid_merkle"`
			}
			if code := at.do(t, http.MethodPost, "/v1/tx/send", req, &blk); code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould get a 200 for the send, got %d.", failed, testID, code)
			}
			if !blk.ValidPOW || !blk.ValidMerkle {
				t.Fatalf("\t%s\tTest %d:\tShould return a valid block, got %+v.", failed, testID, blk)
			}
			t.Logf("\t%s\tTest %d:\tShould return a valid block.", success, testID)

			if bal := at.balance(t, at.alice); bal != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould have 4 for alice, got %d.", failed, testID, bal)
			}
			if bal := at.balance(t, at.miner); bal != 16 {
				t.Fatalf("\t%s\tTest %d:\tShould have 16 for the miner, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould move the value and pay the reward.", success, testID)

			var listing utxo.Set
			if code := at.do(t, http.MethodGet, "/v1/utxos/"+at.alice, nil, &listing); code != http.StatusOK || len(listing) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould list one output for alice, got %d: %v.", failed, testID, code, listing)
			}
			t.Logf("\t%s\tTest %d:\tShould list one output for alice.", success, testID)

			var tx database.Tx
			if code := at.do(t, http.MethodGet, "/v1/tx/"+listing[0].OutPoint.TxID.String(), nil, &tx); code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould find the transaction, got %d.", failed, testID, code)
			}
			if err := tx.ValidateID(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould get back a transaction with a valid id: %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould find the transaction.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen sends are rejected.", testID)
		{
			req := map[string]any{"from": at.alice, "to": at.miner, "amount": 100}
			if code := at.do(t, http.MethodPost, "/v1/tx/send", req, nil); code != http.StatusConflict {
				t.Fatalf("\t%s\tTest %d:\tShould get a 409 for insufficient funds, got %d.", failed, testID, code)
			}
			t.Logf("\t%s\tTest %d:\tShould get a 409 for insufficient funds.", success, testID)

			req = map[string]any{"from": at.alice, "to": at.miner, "amount": 0}
			if code := at.do(t, http.MethodPost, "/v1/tx/send", req, nil); code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould get a 400 for a zero amount, got %d.", failed, testID, code)
			}
			t.Logf("\t%s\tTest %d:\tShould get a 400 for a zero amount.", success, testID)

			var missing database.Hash
			missing[0] = 0xff
			if code := at.do(t, http.MethodGet, "/v1/tx/"+missing.String(), nil, nil); code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould get a 404 for an unknown transaction, got %d.", failed, testID, code)
			}
			t.Logf("\t%s\tTest %d:\tShould get a 404 for an unknown transaction.", success, testID)
		}

		testID = 3
		t.Logf("\tTest %d:\tWhen submitting a transaction signed by the client.", testID)
		{
			aliceKey, err := at.wallets.Key(at.alice)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould have the alice key: %v.", failed, testID, err)
			}

			tx, err := at.chain.NewSpendTx(aliceKey, at.minerPKH, 1)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the spend: %v.", failed, testID, err)
			}

			if code := at.do(t, http.MethodPost, "/v1/tx/submit", tx, nil); code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould get a 200 for the submit, got %d.", failed, testID, code)
			}
			t.Logf("\t%s\tTest %d:\tShould mine the submitted transaction.", success, testID)

			if code := at.do(t, http.MethodPost, "/v1/tx/submit", tx, nil); code != http.StatusConflict {
				t.Fatalf("\t%s\tTest %d:\tShould get a 409 submitting it again, got %d.", failed, testID, code)
			}
			t.Logf("\t%s\tTest %d:\tShould get a 409 submitting it again.", success, testID)

			var blocks []struct {
				ValidPOW    bool `json:"valid_pow"`
				ValidHash   bool `json:"valid_hash"`
				ValidMerkle bool `json:"valid_merkle"`
			}
			if code := at.do(t, http.MethodGet, "/v1/blocks", nil, &blocks); code != http.StatusOK || len(blocks) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould list 3 blocks, got %d: %d.", failed, testID, len(blocks), code)
			}
			for i, b := range blocks {
				if !b.ValidPOW || !b.ValidHash || !b.ValidMerkle {
					t.Fatalf("\t%s\tTest %d:\tShould have block %d valid, got %+v.", failed, testID, i, b)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould list 3 valid blocks.", success, testID)

			var res struct {
				Entries int `json:"entries"`
			}
			if code := at.do(t, http.MethodPost, "/v1/reindex", nil, &res); code != http.StatusOK || res.Entries == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould reindex, got %d: %+v.", failed, testID, code, res)
			}
			t.Logf("\t%s\tTest %d:\tShould reindex.", success, testID)
		}
	}
}
