package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"lojaonline/internal/database"
	"lojaonline/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// CustomerStore is the customer half of database.DBInterface.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
}

// WelcomeMailer is notified after a successful registration.
type WelcomeMailer interface {
	SendWelcomeEmail(to, name string) error
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

type CustomerService struct {
	store  CustomerStore
	mailer WelcomeMailer
	audit  *SecurityLogger
	cost   int
}

func NewCustomerService(store CustomerStore, mailer WelcomeMailer, audit *SecurityLogger) *CustomerService {
	return &CustomerService{store: store, mailer: mailer, audit: audit, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost.
func (s *CustomerService) WithHashCost(cost int) *CustomerService {
	s.cost = cost
	return s
}

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash reports whether password matches the bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Register validates the input and creates the customer. The email must not
// be registered yet; comparison is exact.
func (s *CustomerService) Register(ctx context.Context, in RegisterInput) (*models.Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingField
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		log.Printf("CustomerService.Register - Error hashing password: %v", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	c := &models.Customer{Name: in.Name, Email: in.Email, PasswordHash: hash, Phone: in.Phone}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			log.Printf("CustomerService.Register - email already registered: %s", in.Email)
			return nil, ErrDuplicateEmail
		}
		log.Printf("CustomerService.Register - Error creating customer: %v", err)
		return nil, err
	}
	log.Printf("CustomerService.Register - customer %d registered", c.ID)

	if s.mailer != nil {
		go func(email, name string) {
			if err := s.mailer.SendWelcomeEmail(email, name); err != nil {
				log.Printf("CustomerService.Register - welcome email failed: %v", err)
			}
		}(c.Email, c.Name)
	}
	return c, nil
}

// Verify returns the customer when email and password match. Unknown
// emails and wrong passwords produce the same ErrAuthentication.
func (s *CustomerService) Verify(ctx context.Context, email, password string) (*models.Customer, error) {
	c, err := s.store.GetCustomerByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrAuthentication
	}
	if err != nil {
		return nil, err
	}
	if !CheckPasswordHash(password, c.PasswordHash) {
		return nil, ErrAuthentication
	}
	return c, nil
}

// Get returns a customer by id.
func (s *CustomerService) Get(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	return c, err
}

// Audit records an authentication event in the security log.
func (s *CustomerService) Audit(event, details, ip string) {
	if s.audit == nil {
		return
	}
	s.audit.LogSecurityEvent(event, details, ip)
}
