package mockbackend

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kroma-labs/rainlogger-go/auth"
	"github.com/kroma-labs/rainlogger-go/rainlog"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. The two cases are not told apart.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrUserExists is returned when adding a second account with an email.
	ErrUserExists = errors.New("user already exists")

	// ErrNotFound is returned for an unknown rainlog id.
	ErrNotFound = errors.New("rainlog not found")
)

type account struct {
	user auth.User
	hash []byte
}

// Query selects rainlogs. Empty fields match everything; From and To are
// inclusive YYYY-MM-DD days.
type Query struct {
	From     string
	To       string
	Location string

	// RealOnly keeps only real readings.
	RealOnly bool
}

// Store keeps users and rainlogs in memory. It is safe for concurrent use.
type Store struct {
	bcryptCost int

	mu       sync.RWMutex
	accounts map[string]*account // by lower-cased email
	logs     map[string]rainlog.RainLog
}

// NewStore creates an empty Store hashing passwords at bcryptCost.
func NewStore(bcryptCost int) *Store {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Store{
		bcryptCost: bcryptCost,
		accounts:   make(map[string]*account),
		logs:       make(map[string]rainlog.RainLog),
	}
}

// AddUser stores u with a hash of password. An empty ID is replaced by a
// new UUID. It returns the stored user.
func (s *Store) AddUser(u auth.User, password string) (auth.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return auth.User{}, fmt.Errorf("hash password: %w", err)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	key := strings.ToLower(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[key]; ok {
		return auth.User{}, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
	}
	s.accounts[key] = &account{user: u, hash: hash}
	return u, nil
}

// Authenticate returns the user owning email when password matches.
func (s *Store) Authenticate(email, password string) (auth.User, error) {
	s.mu.RLock()
	acc, ok := s.accounts[strings.ToLower(email)]
	s.mu.RUnlock()

	if !ok {
		return auth.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return auth.User{}, ErrInvalidCredentials
	}
	return acc.user, nil
}

// User returns the user with id.
func (s *Store) User(id string) (auth.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return auth.User{}, false
}

// RemoveUser deletes the account with email.
func (s *Store) RemoveUser(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, strings.ToLower(email))
}

// CreateRainLog stores a new log logged by loggedBy and returns it.
func (s *Store) CreateRainLog(in rainlog.NewRainLog, loggedBy string) rainlog.RainLog {
	log := rainlog.RainLog{
		ID:          uuid.NewString(),
		Date:        in.Date,
		Records:     []map[string]any{},
		Measurement: in.Measurement,
		RealReading: in.RealReading,
		Location:    in.Location,
		Timestamp:   in.Date,
		LoggedBy:    loggedBy,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.ID] = log
	return log
}

// UpdateRainLog changes the measurement and real-reading flag of a log.
func (s *Store) UpdateRainLog(in rainlog.Update) (rainlog.RainLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[in.ID]
	if !ok {
		return rainlog.RainLog{}, ErrNotFound
	}
	log.Measurement = in.Measurement
	log.RealReading = in.RealReading
	s.logs[in.ID] = log
	return log, nil
}

// DeleteRainLog removes a log.
func (s *Store) DeleteRainLog(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[id]; !ok {
		return ErrNotFound
	}
	delete(s.logs, id)
	return nil
}

// RainLogs returns the logs matching q, oldest first.
func (s *Store) RainLogs(q Query) []rainlog.RainLog {
	s.mu.RLock()
	out := make([]rainlog.RainLog, 0, len(s.logs))
	for _, log := range s.logs {
		if q.matches(log) {
			out = append(out, log)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b rainlog.RainLog) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (q Query) matches(log rainlog.RainLog) bool {
	day := log.Day()
	switch {
	case q.From != "" && day < q.From:
		return false
	case q.To != "" && day > q.To:
		return false
	case q.Location != "" && !strings.EqualFold(log.Location, q.Location):
		return false
	case q.RealOnly && !log.RealReading:
		return false
	}
	return true
}
