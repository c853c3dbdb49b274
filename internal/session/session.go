// Package session tracks whether the single process-wide caller is
// authenticated and gates client operations on it.
package session

import (
	"bank_manager/internal/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrAuthenticationFailed = errors.New("invalid account number or password")
	ErrNotLoggedIn          = errors.New("please log in first")
)

type Status int

const (
	LoggedOut Status = iota
	LoggedIn
)

func (s Status) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case LoggedIn:
		return "logged_in"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type State struct {
	Status    Status
	AccountID string
}

type Outcome string

const (
	LoginSucceeded  Outcome = "login successful"
	AlreadyLoggedIn Outcome = "already logged in"
	LoggedOutOK     Outcome = "logged out successfully"
	LogoutDeclined  Outcome = "logout cancelled"
	NotLoggedIn     Outcome = "not logged in"
)

type action int

const (
	actionLogin action = iota
	actionLogout
	actionDrop
)

// transition is the full table of legal moves. It returns the next state
// and the outcome to report; a state equal to the input means no change.
func transition(current State, a action, accountID string) (State, Outcome) {
	switch current.Status {
	case LoggedOut:
		switch a {
		case actionLogin:
			return State{Status: LoggedIn, AccountID: accountID}, LoginSucceeded
		case actionLogout, actionDrop:
			return current, NotLoggedIn
		}
	case LoggedIn:
		switch a {
		case actionLogin:
			return current, AlreadyLoggedIn
		case actionLogout, actionDrop:
			return State{Status: LoggedOut}, LoggedOutOK
		}
	}
	return current, NotLoggedIn
}

// AccountLookup resolves accounts for authentication.
type AccountLookup interface {
	Lookup(ctx context.Context, id string) (domain.Account, bool)
}

type Session struct {
	mu       sync.Mutex
	state    State
	accounts AccountLookup
	logger   *slog.Logger
}

func New(accounts AccountLookup, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		state:    State{Status: LoggedOut},
		accounts: accounts,
		logger:   logger,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticate succeeds iff the account exists and the credential matches exactly.
func (s *Session) Authenticate(ctx context.Context, id, credential string) error {
	account, ok := s.accounts.Lookup(ctx, id)
	if !ok || !account.CredentialMatches(credential) {
		return ErrAuthenticationFailed
	}
	return nil
}

// Login authenticates and enters LoggedIn. While already logged in it is a
// no-op reporting AlreadyLoggedIn; the active account never changes.
func (s *Session) Login(ctx context.Context, id, credential string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == LoggedIn {
		s.logger.InfoContext(ctx, "Login ignored, already logged in",
			slog.String("account_id", s.state.AccountID))
		return AlreadyLoggedIn, nil
	}

	if err := s.Authenticate(ctx, id, credential); err != nil {
		s.logger.WarnContext(ctx, "Login failed", slog.String("account_id", id))
		return "", err
	}

	next, outcome := transition(s.state, actionLogin, id)
	s.state = next
	s.logger.InfoContext(ctx, "Login successful", slog.String("account_id", id))
	return outcome, nil
}

// Logout leaves LoggedIn only once confirm returns true; a nil confirm
// declines. confirm runs without the session lock, and the logout is
// dropped if the session changed while it was asking.
func (s *Session) Logout(ctx context.Context, confirm func() bool) Outcome {
	current := s.State()
	if current.Status != LoggedIn {
		return NotLoggedIn
	}
	if confirm == nil || !confirm() {
		return LogoutDeclined
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != current {
		s.logger.InfoContext(ctx, "Logout skipped, session changed during confirmation",
			slog.String("account_id", current.AccountID))
		if s.state.Status != LoggedIn {
			return NotLoggedIn
		}
		return LogoutDeclined
	}

	next, outcome := transition(s.state, actionLogout, "")
	s.state = next
	s.logger.InfoContext(ctx, "Logged out", slog.String("account_id", current.AccountID))
	return outcome
}

// HandleClientAction permits client operations only while logged in and
// returns the account they act on.
func (s *Session) HandleClientAction(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != LoggedIn {
		s.logger.WarnContext(ctx, "Client access denied")
		return "", ErrNotLoggedIn
	}

	if _, ok := s.accounts.Lookup(ctx, s.state.AccountID); !ok {
		s.logger.WarnContext(ctx, "Logged-in account no longer exists",
			slog.String("account_id", s.state.AccountID))
		s.state, _ = transition(s.state, actionDrop, "")
		return "", ErrNotLoggedIn
	}

	return s.state.AccountID, nil
}

// HandleAccountEvent ends the session when its account is deleted.
func (s *Session) HandleAccountEvent(ctx context.Context, event domain.LifecycleEvent) error {
	if event.Type != domain.EventDeleted {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == LoggedIn && s.state.AccountID == event.Account.ID {
		s.state, _ = transition(s.state, actionDrop, "")
		s.logger.InfoContext(ctx, "Session closed, account deleted",
			slog.String("account_id", event.Account.ID))
	}
	return nil
}
