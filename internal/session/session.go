// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the persistent local user identity.
//
// Every chat history namespace is keyed by a session ID. The provider
// lazily mints an ID on first use, persists it, and hands the same ID
// back until Reset issues a fresh one. Callers always pass the namespace
// explicitly; nothing in the storage layer reaches for a global.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/questrun/internal/util"
)

// SessionFileName is the on-disk name of the identity record.
const SessionFileName = "session-id"

// IDPrefix marks identifiers minted by this provider.
const IDPrefix = "user_"

// Provider persists and serves the local session identity.
type Provider struct {
	mu   sync.Mutex
	path string

	// cached holds the last ID read or minted; empty until first use.
	cached string
}

// NewProvider creates a provider rooted at the default data directory.
func NewProvider() (*Provider, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewProviderWithDir(filepath.Join(homeDir, ".questrun"))
}

// NewProviderWithDir creates a provider with a custom data directory.
func NewProviderWithDir(dir string) (*Provider, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Provider{path: filepath.Join(dir, SessionFileName)}, nil
}

// Current returns the session ID, minting and persisting a new one if none
// exists yet. A corrupt or empty file is treated as absent.
func (p *Provider) Current() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	if data, err := os.ReadFile(p.path); err == nil {
		id := strings.TrimSpace(string(data))
		if strings.HasPrefix(id, IDPrefix) {
			p.cached = id
			return id, nil
		}
	}

	return p.mint()
}

// Reset discards the current identity and mints a fresh one.
func (p *Provider) Reset() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mint()
}

// Clear removes the persisted identity without minting a replacement.
func (p *Provider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cached = ""
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// mint generates, persists, and caches a new identity. Caller holds the lock.
func (p *Provider) mint() (string, error) {
	id := generateSessionID()
	if err := util.AtomicWriteFile(p.path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	p.cached = id
	return id, nil
}

// generateSessionID creates a unique session ID.
// The timestamp keeps IDs sortable; the UUID fragment keeps them unique.
func generateSessionID() string {
	fragment := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s%d_%s", IDPrefix, time.Now().UnixMilli(), fragment)
}
