// Package identity implements the organization gate: the one-field form a
// visitor fills in before chatting, persisted in the local store.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resumechat/internal/kvstore"
	"resumechat/internal/observability"

	"golang.org/x/text/unicode/norm"
)

// StorageKey is the store key the serialized identity lives under.
const StorageKey = "userInfo"

// ErrEmptyOrganization is returned for blank gate input.
var ErrEmptyOrganization = errors.New("organization is required")

// PromptText is shown when the gate rejects blank input.
const PromptText = "소속을 입력해주세요."

// Identity is who the visitor says they are.
type Identity struct {
	Organization string `json:"organization"`
}

// Normalize trims raw and composes it to NFC, so a name typed as decomposed
// Hangul jamo matches the same name typed as syllables.
func Normalize(raw string) (Identity, error) {
	org := strings.TrimSpace(norm.NFC.String(raw))
	if org == "" {
		return Identity{}, ErrEmptyOrganization
	}
	return Identity{Organization: org}, nil
}

// Gate holds the current identity and mirrors it into a store.
type Gate struct {
	store   kvstore.Store
	current *Identity
}

// NewGate returns a gate with no identity loaded.
func NewGate(store kvstore.Store) *Gate {
	return &Gate{store: store}
}

// Load reads the stored identity. A value that does not decode to a valid
// identity is treated as absent.
func (g *Gate) Load() error {
	raw, ok, err := g.store.Get(StorageKey)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}
	g.current = nil
	if !ok {
		return nil
	}

	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		observability.Logger().Warn("ignoring corrupt stored identity", "error", err)
		return nil
	}
	id, err = Normalize(id.Organization)
	if err != nil {
		observability.Logger().Warn("ignoring empty stored identity")
		return nil
	}
	g.current = &id
	return nil
}

// Submit validates raw and, if it is acceptable, persists it as the current
// identity. On any error nothing changes.
func (g *Gate) Submit(raw string) (Identity, error) {
	id, err := Normalize(raw)
	if err != nil {
		return Identity{}, err
	}

	data, err := json.Marshal(id)
	if err != nil {
		return Identity{}, fmt.Errorf("marshaling identity: %w", err)
	}
	if err := g.store.Set(StorageKey, string(data)); err != nil {
		return Identity{}, fmt.Errorf("saving identity: %w", err)
	}
	g.current = &id
	return id, nil
}

// Logout forgets the identity in the store, then in memory. If the store
// fails, the identity stays.
func (g *Gate) Logout() error {
	if err := g.store.Delete(StorageKey); err != nil {
		return fmt.Errorf("removing identity: %w", err)
	}
	g.current = nil
	return nil
}

// Current returns the identity, if one is set.
func (g *Gate) Current() (Identity, bool) {
	if g.current == nil {
		return Identity{}, false
	}
	return *g.current, true
}

// Present reports whether the gate is open.
func (g *Gate) Present() bool {
	return g.current != nil
}
