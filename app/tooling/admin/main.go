// This program performs administrative tasks against a local ledger database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ardanlabs/conf/v3"
	"github.com/utxoledger/ledger/app/tooling/admin/commands"
	"github.com/utxoledger/ledger/foundation/blockchain/chain"
	"github.com/utxoledger/ledger/foundation/blockchain/genesis"
	"github.com/utxoledger/ledger/foundation/blockchain/storage/leveldb"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
	"github.com/utxoledger/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

type config struct {
	conf.Version
	Args  conf.Args
	Chain struct {
		DBPath      string `conf:"default:zblock/ledger.db"`
		GenesisPath string `conf:"default:zblock/genesis.json"`
	}
	Wallets struct {
		Folder string `conf:"default:zblock/wallets/"`
	}
}

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrHelp) {
			log.Errorw("admin", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "utxo ledger admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	return processCommands(cfg, log)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(cfg config, log *zap.SugaredLogger) error {
	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	switch cfg.Args.Num(0) {
	case "createwallet":
		wallets, err := wallet.NewWallets(cfg.Wallets.Folder)
		if err != nil {
			return err
		}
		if err := commands.CreateWallet(wallets, cfg.Args.Num(1)); err != nil {
			return fmt.Errorf("creating wallet: %w", err)
		}
		return nil

	case "addresses":
		wallets, err := wallet.NewWallets(cfg.Wallets.Folder)
		if err != nil {
			return err
		}
		commands.Addresses(wallets)
		return nil

	case "create":
		gen, err := loadGenesis(cfg.Chain.GenesisPath)
		if err != nil {
			return err
		}

		store, err := leveldb.New(cfg.Chain.DBPath, ev)
		if err != nil {
			return err
		}

		if err := commands.Create(context.Background(), chain.Config{Storage: store, Genesis: gen, EvHandler: ev}, cfg.Args.Num(1)); err != nil {
			store.Close()
			return fmt.Errorf("creating chain: %w", err)
		}
		return store.Close()
	}

	chn, err := openChain(cfg, ev)
	if err != nil {
		return err
	}
	defer chn.Close()

	switch cfg.Args.Num(0) {
	case "print":
		if err := commands.Print(chn); err != nil {
			return fmt.Errorf("printing chain: %w", err)
		}

	case "validate":
		if err := commands.Validate(chn); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}

	case "reindex":
		if err := commands.Reindex(context.Background(), chn); err != nil {
			return fmt.Errorf("reindexing: %w", err)
		}

	case "balance":
		if err := commands.Balance(chn, cfg.Args.Num(1)); err != nil {
			return fmt.Errorf("getting balance: %w", err)
		}

	case "send":
		wallets, err := wallet.NewWallets(cfg.Wallets.Folder)
		if err != nil {
			return err
		}

		amount, err := strconv.ParseInt(cfg.Args.Num(3), 10, 64)
		if err != nil {
			return fmt.Errorf("amount %q: %w", cfg.Args.Num(3), err)
		}

		if err := commands.Send(context.Background(), chn, wallets, cfg.Args.Num(1), cfg.Args.Num(2), amount); err != nil {
			return fmt.Errorf("sending: %w", err)
		}

	default:
		commands.Usage()
		return commands.ErrHelp
	}

	return nil
}

func loadGenesis(path string) (genesis.Genesis, error) {
	gen, err := genesis.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return genesis.Default(), nil
		}
		return genesis.Genesis{}, fmt.Errorf("loading genesis: %w", err)
	}

	return gen, nil
}

func openChain(cfg config, ev func(v string, args ...any)) (*chain.Chain, error) {
	gen, err := loadGenesis(cfg.Chain.GenesisPath)
	if err != nil {
		return nil, err
	}

	store, err := leveldb.New(cfg.Chain.DBPath, ev)
	if err != nil {
		return nil, err
	}

	chn, err := chain.Open(chain.Config{Storage: store, Genesis: gen, EvHandler: ev})
	if err != nil {
		store.Close()
		return nil, err
	}

	return chn, nil
}
