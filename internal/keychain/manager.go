// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for sqldsh.
// This module manages all interactions with the OS keychain/credential store,
// providing a unified interface for storing and retrieving per-database auth
// tokens so they never land in plain-text config files.
//
// The package supports macOS Keychain and Windows Credential Manager, with a
// native `security` command backend on macOS and the keyring library
// elsewhere.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "sqldsh"

// tokenKey namespaces a database's auth token inside the service.
func tokenKey(database string) string {
	return "db_token_" + database
}

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
		// Fall through to keyring library if security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}

	return &Manager{
		ring: ring,
	}, nil
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	// If already initialized successfully, return it
	if globalManager != nil {
		return globalManager, nil
	}

	// If previous initialization failed, retry
	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}

	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
// Forces use of macOS Keychain or Windows Credential Manager - no file fallback.
func openRing() (keyring.Keyring, error) {
	// Only support darwin/windows platforms
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		return nil, errors.New("secure storage not supported on this OS (macOS/Windows only)")
	}

	var allowedBackends []keyring.BackendType
	if runtime.GOOS == "darwin" {
		// Try macOS Keychain first, then pass (password store) as fallback
		allowedBackends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.PassBackend,
		}
	} else if runtime.GOOS == "windows" {
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
	}
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, err
	}
	return ring, nil
}

// SaveDatabaseToken stores the auth token for a database in the OS keychain.
// This method is thread-safe.
func (m *Manager) SaveDatabaseToken(database, token string) error {
	if database == "" {
		return errors.New("database name is required")
	}
	if token == "" {
		return errors.New("token is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(tokenKey(database), token)
	}
	return m.ring.Set(keyring.Item{Key: tokenKey(database), Data: []byte(token)})
}

// LoadDatabaseToken retrieves the auth token for a database.
// This method is thread-safe.
func (m *Manager) LoadDatabaseToken(database string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		token, err := m.backend.Get(tokenKey(database))
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", errors.New("empty token")
		}
		return token, nil
	}

	it, err := m.ring.Get(tokenKey(database))
	if err != nil {
		return "", err
	}
	if len(it.Data) == 0 {
		return "", errors.New("empty token")
	}
	return string(it.Data), nil
}

// DeleteDatabaseToken removes the stored token for a database.
// This method is thread-safe.
func (m *Manager) DeleteDatabaseToken(database string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Delete(tokenKey(database))
	}
	return m.ring.Remove(tokenKey(database))
}
