package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// KeyExtension is the file extension for private key files.
const KeyExtension = ".ecdsa"

// ErrInvalidName is returned when a wallet name can't be used as a file name
// inside the wallet folder.
var ErrInvalidName = errors.New("invalid wallet name")

// Wallets maintains the set of private keys found in a folder, indexed by
// address.
type Wallets struct {
	mu    sync.RWMutex
	root  string
	keys  map[string]*ecdsa.PrivateKey
	names map[string]string
}

// NewWallets loads every key file in the root folder.
func NewWallets(root string) (*Wallets, error) {
	ws := Wallets{
		root:  root,
		keys:  make(map[string]*ecdsa.PrivateKey),
		names: make(map[string]string),
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating wallet folder: %w", err)
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != KeyExtension {
			return nil
		}

		privateKey, err := Load(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		address := KeyAddress(privateKey)
		ws.keys[address] = privateKey
		ws.names[address] = strings.TrimSuffix(path.Base(fileName), KeyExtension)

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ws, nil
}

// Create generates a new key, saves it under the name, and returns
// its address.
func (ws *Wallets) Create(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	fileName := filepath.Join(ws.root, name+KeyExtension)
	if _, err := os.Stat(fileName); err == nil {
		return "", fmt.Errorf("wallet %q already exists", name)
	}

	privateKey, err := Generate()
	if err != nil {
		return "", err
	}

	if err := Save(fileName, privateKey); err != nil {
		return "", err
	}

	address := KeyAddress(privateKey)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.keys[address] = privateKey
	ws.names[address] = name

	return address, nil
}

// Key returns the private key held for the address.
func (ws *Wallets) Key(address string) (*ecdsa.PrivateKey, error) {
	if _, err := AddressToPubKeyHash(address); err != nil {
		return nil, err
	}

	ws.mu.RLock()
	defer ws.mu.RUnlock()

	privateKey, exists := ws.keys[address]
	if !exists {
		return nil, fmt.Errorf("wallet for address %q does not exist", address)
	}

	return privateKey, nil
}

// Lookup returns the name for the specified address or the address itself
// when there is no wallet for it.
func (ws *Wallets) Lookup(address string) string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	name, exists := ws.names[address]
	if !exists {
		return address
	}
	return name
}

// Addresses returns the sorted list of known addresses.
func (ws *Wallets) Addresses() []string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	addresses := make([]string, 0, len(ws.keys))
	for address := range ws.keys {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	return addresses
}

// KeyByName returns the private key and address saved under the name.
func (ws *Wallets) KeyByName(name string) (*ecdsa.PrivateKey, string, error) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	for address, n := range ws.names {
		if n == name {
			return ws.keys[address], address, nil
		}
	}

	return nil, "", fmt.Errorf("wallet %q does not exist", name)
}

// =============================================================================

// validateName checks the name is a plain file name so the key file lands
// inside the wallet folder.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name required", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}

	return nil
}
