// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/utxoledger/ledger/app/services/node/handlers/v1/public"
	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
	"github.com/utxoledger/ledger/foundation/events"
	"github.com/utxoledger/ledger/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log         *zap.SugaredLogger
	Chain       *chain.Chain
	Wallets     *wallet.Wallets
	Miner       []byte
	MineTimeout time.Duration
	Evts        *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:         cfg.Log,
		Chain:       cfg.Chain,
		Wallets:     cfg.Wallets,
		Miner:       cfg.Miner,
		MineTimeout: cfg.MineTimeout,
		WS:          websocket.Upgrader{},
		Evts:        cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/balance/:address", pbl.Balance)
	app.Handle(http.MethodGet, version, "/utxos/:address", pbl.UTXOs)
	app.Handle(http.MethodGet, version, "/tx/:id", pbl.Transaction)
	app.Handle(http.MethodGet, version, "/blocks", pbl.Blocks)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/tx/send", pbl.SendTransaction)
	app.Handle(http.MethodPost, version, "/reindex", pbl.Reindex)
}
