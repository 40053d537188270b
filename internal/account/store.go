// Package account provides the optional in-memory account store
// (spec.md §3 AccountRecord, §6 "account-file text format").
//
// Passwords are hashed at rest with bcrypt (grounded on the teacher's
// internal/api auth middleware, which bcrypt-hashes operator session
// passwords the same way) rather than kept resident in plaintext; the
// RADIUS-recovered plaintext password is compared against the hash with
// bcrypt.CompareHashAndPassword.
package account

import (
	"bufio"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Record is one account: its lookup key is (normalize(Realm), normalize(Account)),
// case-insensitive, realm-then-account (spec.md §3).
type Record struct {
	Realm        string
	Account      string
	PasswordHash []byte
}

type key struct {
	realm   string
	account string
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func makeKey(realm, account string) key {
	return key{realm: normalize(realm), account: normalize(account)}
}

// Store is a simple in-memory (realm, account) -> password-hash map.
// Reads and writes are independent per spec.md's "optional in-memory
// account file loader": there is no persistence and no hot-reload.
type Store struct {
	records map[key]Record
	cost    int
}

// NewStore creates an empty store. cost is the bcrypt work factor used
// when hashing passwords loaded via LoadText; 0 uses bcrypt.DefaultCost.
func NewStore(cost int) *Store {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Store{records: make(map[key]Record), cost: cost}
}

// LoadText parses the account-file text format (spec.md §6): lines of
// `realm;account;password`. Blank lines and lines beginning with `//` are
// ignored; whitespace around fields is trimmed. Each password is hashed
// with bcrypt before being stored.
func (s *Store) LoadText(text string) error {
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		fields := strings.SplitN(line, ";", 3)
		if len(fields) != 3 {
			return fmt.Errorf("account file line %d: expected realm;account;password, got %q", lineNo, line)
		}
		realm := strings.TrimSpace(fields[0])
		acct := strings.TrimSpace(fields[1])
		password := strings.TrimSpace(fields[2])

		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return fmt.Errorf("account file line %d: hashing password: %w", lineNo, err)
		}

		s.records[makeKey(realm, acct)] = Record{Realm: realm, Account: acct, PasswordHash: hash}
	}
	return scanner.Err()
}

// LoadHashedText parses the same `realm;account;hash` layout as LoadText,
// but the third field is already a bcrypt hash (as produced by
// cmd/radhashpw) rather than a plaintext password — no re-hashing is
// performed on load.
func (s *Store) LoadHashedText(text string) error {
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		fields := strings.SplitN(line, ";", 3)
		if len(fields) != 3 {
			return fmt.Errorf("account file line %d: expected realm;account;hash, got %q", lineNo, line)
		}
		realm := strings.TrimSpace(fields[0])
		acct := strings.TrimSpace(fields[1])
		hash := strings.TrimSpace(fields[2])

		s.records[makeKey(realm, acct)] = Record{Realm: realm, Account: acct, PasswordHash: []byte(hash)}
	}
	return scanner.Err()
}

// Authenticate implements the server's callback shape
// (authenticate(realm, account, password) -> bool, spec.md §6).
func (s *Store) Authenticate(realm, account, password string) bool {
	rec, ok := s.records[makeKey(realm, account)]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(password)) == nil
}

// Len returns the number of loaded accounts.
func (s *Store) Len() int { return len(s.records) }
