// Package cmd contains the wallet app.
package cmd

import (
	"crypto/ecdsa"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/utxoledger/ledger/foundation/blockchain/wallet"
)

var (
	walletName string
	walletPath string
	url        string
)

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage keys and move value on a ledger node",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&walletName, "wallet", "w", "private", "Name of the wallet key file.")
	rootCmd.PersistentFlags().StringVarP(&walletPath, "wallet-path", "p", "zblock/wallets/", "Path to the directory with wallet keys.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	name := walletName
	if !strings.HasSuffix(name, wallet.KeyExtension) {
		name += wallet.KeyExtension
	}

	return filepath.Join(walletPath, name)
}

func loadKey() (*ecdsa.PrivateKey, error) {
	return wallet.Load(getPrivateKeyPath())
}
