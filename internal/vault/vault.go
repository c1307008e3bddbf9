// Package vault holds the bidirectional real-value ↔ pseudonym mapping
// for one session, for the lifetime of one request. State is rehydrated
// from persisted, encrypted entries at the start of every request and
// never shared across requests.
package vault

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/Nisrin888/blinder/internal/crypto"
	"github.com/Nisrin888/blinder/internal/detector"
)

// ErrUnknownPseudonym is returned by AddAlias when the target pseudonym
// has no existing entry.
var ErrUnknownPseudonym = errors.New("vault: unknown pseudonym")

// PseudonymPattern matches the grammar [TYPE_N].
var PseudonymPattern = regexp.MustCompile(`\[[A-Z][A-Z0-9_]*_\d+\]`)

// Entry is one real-value ↔ pseudonym binding.
type Entry struct {
	EntityType string
	Pseudonym  string
	RealValue  string
	Aliases    []string
}

// PersistedEntry is the on-disk shape: the real value is never stored in
// the clear, only its ciphertext and nonce.
type PersistedEntry struct {
	EntityType string
	Pseudonym  string
	Ciphertext []byte
	Nonce      []byte
	Aliases    []string
}

// Vault holds one session's live pseudonym state.
type Vault struct {
	key          []byte
	forward      map[string]string // real value or alias -> pseudonym
	entries      map[string]*Entry // pseudonym -> entry
	counters     map[string]int    // entity type -> highest N used
	createdNow   map[string]bool   // pseudonym -> created during this request
}

// New creates an empty vault bound to the given session key (see
// crypto.DeriveKey).
func New(sessionKey []byte) *Vault {
	return &Vault{
		key:        sessionKey,
		forward:    make(map[string]string),
		entries:    make(map[string]*Entry),
		counters:   make(map[string]int),
		createdNow: make(map[string]bool),
	}
}

// LoadEntries rehydrates vault state from persisted entries, decrypting
// each real value. Counters are restored to the max N seen per entity
// type so newly created entities continue the sequence without collision.
func (v *Vault) LoadEntries(persisted []PersistedEntry) error {
	for _, p := range persisted {
		realValue, err := crypto.DecryptString(p.Ciphertext, v.key, p.Nonce)
		if err != nil {
			return fmt.Errorf("vault: load entry %s: %w", p.Pseudonym, err)
		}
		entry := &Entry{
			EntityType: p.EntityType,
			Pseudonym:  p.Pseudonym,
			RealValue:  realValue,
			Aliases:    append([]string(nil), p.Aliases...),
		}
		v.entries[p.Pseudonym] = entry
		if _, taken := v.forward[realValue]; !taken {
			v.forward[realValue] = p.Pseudonym
		}
		for _, a := range entry.Aliases {
			v.forward[a] = p.Pseudonym
		}
		if n := extractCounter(p.Pseudonym); n > v.counters[p.EntityType] {
			v.counters[p.EntityType] = n
		}
	}
	return nil
}

var pseudonymNumRe = regexp.MustCompile(`_(\d+)\]$`)

func extractCounter(pseudonym string) int {
	m := pseudonymNumRe.FindStringSubmatch(pseudonym)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// AddEntity returns the existing pseudonym for realValue if one exists;
// otherwise it allocates the next pseudonym for entityType and installs
// the binding in both directions.
func (v *Vault) AddEntity(realValue, entityType string) string {
	if p, ok := v.forward[realValue]; ok {
		return p
	}
	v.counters[entityType]++
	pseudonym := fmt.Sprintf("[%s_%d]", entityType, v.counters[entityType])
	v.entries[pseudonym] = &Entry{EntityType: entityType, Pseudonym: pseudonym, RealValue: realValue}
	v.forward[realValue] = pseudonym
	v.createdNow[pseudonym] = true
	return pseudonym
}

// GetPseudonym looks up the pseudonym for a real value or alias.
func (v *Vault) GetPseudonym(realValueOrAlias string) (string, bool) {
	p, ok := v.forward[realValueOrAlias]
	return p, ok
}

// GetRealValue looks up the real value behind a pseudonym.
func (v *Vault) GetRealValue(pseudonym string) (string, bool) {
	e, ok := v.entries[pseudonym]
	if !ok {
		return "", false
	}
	return e.RealValue, true
}

// AddAlias records alias as an alternative surface form of pseudonym's
// entry, idempotently, and wires it into the forward map.
func (v *Vault) AddAlias(pseudonym, alias string) error {
	e, ok := v.entries[pseudonym]
	if !ok {
		return ErrUnknownPseudonym
	}
	for _, a := range e.Aliases {
		if a == alias {
			v.forward[alias] = pseudonym
			return nil
		}
	}
	e.Aliases = append(e.Aliases, alias)
	v.forward[alias] = pseudonym
	return nil
}

// PseudonymizeText splices pseudonyms in for each span, processing spans
// in descending start order so earlier offsets stay valid, and registers
// each span's real value with AddEntity so repeated surface forms share a
// pseudonym.
func (v *Vault) PseudonymizeText(text string, spans []detector.Span) string {
	ordered := make([]detector.Span, len(spans))
	copy(ordered, spans)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	result := text
	for _, s := range ordered {
		pseudonym := v.AddEntity(s.Text, s.Label)
		result = result[:s.Start] + pseudonym + result[s.End:]
	}
	return result
}

// EncryptValue encrypts a real value under this vault's session key.
func (v *Vault) EncryptValue(realValue string) (ciphertext, nonce []byte, err error) {
	return crypto.EncryptString(realValue, v.key)
}

// DecryptValue decrypts a real value under this vault's session key.
func (v *Vault) DecryptValue(ciphertext, nonce []byte) (string, error) {
	return crypto.DecryptString(ciphertext, v.key, nonce)
}

// PendingEntries returns entries created during this request (via
// AddEntity) that have not yet been persisted, encrypted and ready to
// insert.
func (v *Vault) PendingEntries() ([]PersistedEntry, error) {
	var out []PersistedEntry
	for pseudonym := range v.createdNow {
		e := v.entries[pseudonym]
		ct, nonce, err := v.EncryptValue(e.RealValue)
		if err != nil {
			return nil, fmt.Errorf("vault: encrypt pending entry %s: %w", pseudonym, err)
		}
		out = append(out, PersistedEntry{
			EntityType: e.EntityType,
			Pseudonym:  e.Pseudonym,
			Ciphertext: ct,
			Nonce:      nonce,
			Aliases:    append([]string(nil), e.Aliases...),
		})
	}
	return out, nil
}

// Entries returns every live entry (loaded and newly created), for
// read-only inspection such as the entity mapper's normalised matching.
func (v *Vault) Entries() map[string]*Entry {
	return v.entries
}
