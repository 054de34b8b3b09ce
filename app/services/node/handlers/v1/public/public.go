// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/utxoledger/ledger/business/sys/validate"
	"github.com/utxoledger/ledger/business/web/errs"
	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/database"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
	"github.com/utxoledger/ledger/foundation/events"
	"github.com/utxoledger/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	Chain       *chain.Chain
	Wallets     *wallet.Wallets
	Miner       []byte
	MineTimeout time.Duration
	WS          websocket.Upgrader
	Evts        *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	return h.Evts.Stream(ctx, c, v.TraceID)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Chain.Genesis(), http.StatusOK)
}

// Status returns the tip of the chain and a summary of the unspent index.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tip, err := h.Chain.Tip()
	if err != nil {
		return errs.FromLedger(err)
	}

	entries, total, err := h.Chain.Stats()
	if err != nil {
		return err
	}

	st := status{
		Tip:        tip.String(),
		Entries:    entries,
		TotalValue: total,
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Balance returns the balance for the address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	pubKeyHash, err := wallet.AddressToPubKeyHash(address)
	if err != nil {
		return errs.FromLedger(err)
	}

	bal, err := h.Chain.Balance(pubKeyHash)
	if err != nil {
		return err
	}

	resp := balance{
		Address: address,
		Name:    h.Wallets.Lookup(address),
		Balance: bal,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UTXOs returns the unspent outputs locked to the address in the order
// coin selection walks them.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pubKeyHash, err := wallet.AddressToPubKeyHash(web.Param(r, "address"))
	if err != nil {
		return errs.FromLedger(err)
	}

	spendable, err := h.Chain.UTXOs(pubKeyHash)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, spendable, http.StatusOK)
}

// Transaction returns the transaction with the id as stored in the chain.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txID, err := database.ToHash(web.Param(r, "id"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	tx, err := h.Chain.FindTransaction(txID)
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// Blocks returns every block from the tip to genesis with the result of
// validating each one.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	reports, err := h.Chain.Blocks()
	if err != nil {
		return err
	}

	blocks := make([]block, len(reports))
	for i, report := range reports {
		blocks[i] = toBlock(h.Wallets.Lookup, report)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// SubmitTransaction mines a transaction signed by a wallet into a new block.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tx", "traceid", v.TraceID, "tx", tx)

	ctx, cancel := context.WithTimeout(ctx, h.MineTimeout)
	defer cancel()

	blk, err := h.Chain.SubmitTx(ctx, tx, h.Miner)
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, toBlock(h.Wallets.Lookup, chain.NewBlockReport(blk, h.Chain.Genesis().TargetBits)), http.StatusOK)
}

// SendTransaction moves value between addresses using a wallet held by the
// node and mines the transaction into a new block.
func (h Handlers) SendTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req SendRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	privateKey, err := h.Wallets.Key(req.From)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("from: %w", err), http.StatusBadRequest)
	}

	to, err := wallet.AddressToPubKeyHash(req.To)
	if err != nil {
		return errs.FromLedger(err)
	}

	h.Log.Infow("send tx", "traceid", v.TraceID, "from", req.From, "to", req.To, "amount", req.Amount)

	ctx, cancel := context.WithTimeout(ctx, h.MineTimeout)
	defer cancel()

	blk, err := h.Chain.Send(ctx, privateKey, to, req.Amount, h.Miner)
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, toBlock(h.Wallets.Lookup, chain.NewBlockReport(blk, h.Chain.Genesis().TargetBits)), http.StatusOK)
}

// Reindex rebuilds the unspent output index from the chain.
func (h Handlers) Reindex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	count, err := h.Chain.Reindex(ctx)
	if err != nil {
		return errs.FromLedger(err)
	}

	resp := struct {
		Entries int `json:"entries"`
	}{
		Entries: count,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
