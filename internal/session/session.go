package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lojaonline/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by stores for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned by Save when the stored session changed since
	// it was loaded. The first writer wins.
	ErrConflict = errors.New("session changed concurrently")
)

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the per-request state of one browser: the authenticated
// identity and the cart. Handlers load it at the start of a request and
// save it back at the end.
type Session struct {
	ID            string `json:"-"`
	CustomerID    int64  `json:"cliente_id,omitempty"`
	CustomerName  string `json:"cliente_nome,omitempty"`
	CustomerEmail string `json:"cliente_email,omitempty"`
	Cart          Cart   `json:"carrinho"`
	CheckoutToken string `json:"checkout_token,omitempty"`
	Flash         *Flash `json:"flash,omitempty"`
	Version       int    `json:"v"`
}

// New returns an empty session with a fresh id.
func New() *Session {
	return &Session{ID: uuid.NewString(), Cart: Cart{}}
}

// LoggedIn reports whether a customer is attached to the session.
func (s *Session) LoggedIn() bool {
	return s.CustomerID != 0
}

// Login attaches the customer identity to the session.
func (s *Session) Login(c *models.Customer) {
	s.CustomerID = c.ID
	s.CustomerName = c.Name
	s.CustomerEmail = c.Email
}

// Logout drops the identity, the cart and any pending checkout.
func (s *Session) Logout() {
	s.CustomerID = 0
	s.CustomerName = ""
	s.CustomerEmail = ""
	s.CheckoutToken = ""
	s.Cart = Cart{}
}

// SetFlash replaces the pending flash message.
func (s *Session) SetFlash(kind, message string) {
	s.Flash = &Flash{Kind: kind, Message: message}
}

// PopFlash returns the pending flash message and clears it.
func (s *Session) PopFlash() *Flash {
	f := s.Flash
	s.Flash = nil
	return f
}

// EnsureCheckoutToken returns the token of the checkout being previewed,
// creating one if needed.
func (s *Session) EnsureCheckoutToken() string {
	if s.CheckoutToken == "" {
		s.CheckoutToken = uuid.NewString()
	}
	return s.CheckoutToken
}

func encode(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

func decode(id string, data []byte) (*Session, error) {
	s := &Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	s.ID = id
	if s.Cart == nil {
		s.Cart = Cart{}
	}
	return s, nil
}

// Store persists sessions between requests. Save only succeeds when the
// stored copy still has s.Version and then increments it; otherwise it
// returns ErrConflict and leaves both copies untouched.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
