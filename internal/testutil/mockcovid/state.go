package mockcovid

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sipico/covid-counter-client/internal/record"
)

// User is a registered account.
type User struct {
	Name         string
	Email        string
	PasswordHash string
	OTPEnabled   bool
	CreatedAt    time.Time
}

type otpChallenge struct {
	code      string
	expiresAt time.Time
}

type table struct {
	keyField string
	rows     []record.Record
}

func (t *table) find(key string) int {
	for i, row := range t.rows {
		if k, ok := row.Key(t.keyField); ok && k == key {
			return i
		}
	}
	return -1
}

// State is the mock's in-memory database.
type State struct {
	mu       sync.RWMutex
	users    map[string]*User
	otps     map[string]otpChallenge
	tables   map[string]*table
	readOnly map[string]map[string]bool
	queries  map[string][]url.Values
}

// ErrEmailTaken is returned when registering an existing email.
var ErrEmailTaken = errors.New("email already registered")

// NewState returns an empty state with the four dataset tables.
func NewState() *State {
	s := &State{
		users:    make(map[string]*User),
		otps:     make(map[string]otpChallenge),
		tables:   make(map[string]*table),
		readOnly: make(map[string]map[string]bool),
		queries:  make(map[string][]url.Values),
	}
	for _, ds := range datasetSpecs {
		s.tables[ds.path] = &table{keyField: ds.keyField}
	}
	return s
}

// AddUser registers an account. When otp is true every login requires an
// emailed passcode.
func (s *State) AddUser(name, email, password string, otp bool) error {
	// The mock trades hash strength for test speed.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.users[key]; exists {
		return ErrEmailTaken
	}
	s.users[key] = &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		OTPEnabled:   otp,
		CreatedAt:    time.Now(),
	}
	return nil
}

// User looks up an account by email.
func (s *State) User(email string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(email)]
	return u, ok
}

func (s *State) checkPassword(email, password string) (*User, bool) {
	u, ok := s.User(email)
	if !ok {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, false
	}
	return u, true
}

func (s *State) issueOTP(email, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[strings.ToLower(email)] = otpChallenge{code: code, expiresAt: expiresAt}
}

// consumeOTP checks and burns a passcode.
func (s *State) consumeOTP(email, code string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	c, ok := s.otps[key]
	if !ok || c.code != code || now.After(c.expiresAt) {
		return false
	}
	delete(s.otps, key)
	return true
}

// LastOTP returns the outstanding passcode for email, standing in for the
// mailbox.
func (s *State) LastOTP(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.otps[strings.ToLower(email)]
	return c.code, ok
}

// Rows returns a copy of a dataset's rows in storage order.
func (s *State) Rows(path string) []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[path]
	if !ok {
		return nil
	}
	out := make([]record.Record, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Clone()
	}
	return out
}

// Row returns one row by identity key.
func (s *State) Row(path, key string) (record.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[path]
	if !ok {
		return nil, false
	}
	i := t.find(key)
	if i < 0 {
		return nil, false
	}
	return t.rows[i].Clone(), true
}

// PutRow inserts or replaces a row.
func (s *State) PutRow(path string, rec record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[path]
	key, _ := rec.Key(t.keyField)
	if i := t.find(key); i >= 0 {
		t.rows[i] = rec.Clone()
		return
	}
	t.rows = append(t.rows, rec.Clone())
}

// SetReadOnlyFields makes updates on path silently ignore fields, so the
// echoed row keeps the stored values.
func (s *State) SetReadOnlyFields(path string, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ro := make(map[string]bool, len(fields))
	for _, f := range fields {
		ro[f] = true
	}
	s.readOnly[path] = ro
}

// update merges payload into the stored row and returns the stored result.
func (s *State) update(path, key string, payload record.Record) (record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[path]
	i := t.find(key)
	if i < 0 {
		return nil, false
	}
	row := t.rows[i].Clone()
	for field, v := range payload {
		if field == t.keyField || s.readOnly[path][field] {
			continue
		}
		row[field] = v
	}
	t.rows[i] = row
	return row.Clone(), true
}

func (s *State) recordQuery(path string, q url.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[path] = append(s.queries[path], q)
}

// Queries returns the query strings of every list request on path, oldest first.
func (s *State) Queries(path string) []url.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]url.Values(nil), s.queries[path]...)
}
