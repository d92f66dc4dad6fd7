package services

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Security event types written to the audit log.
const (
	EventLoginFailed   = "LOGIN_FAILED"
	EventLoginSuccess  = "LOGIN_SUCCESS"
	EventRegistered    = "REGISTERED"
	EventLogout        = "LOGOUT"
	EventCheckoutError = "CHECKOUT_ERROR"
)

// SecurityLogger appends authentication events to a log file.
type SecurityLogger struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewSecurityLogger opens (or creates) path in append mode. It returns nil
// when the file cannot be opened; a nil logger drops every event.
func NewSecurityLogger(path string) *SecurityLogger {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("SecurityLogger - could not open %s: %v", path, err)
		return nil
	}
	return NewSecurityLoggerTo(file)
}

func NewSecurityLoggerTo(w io.Writer) *SecurityLogger {
	return &SecurityLogger{out: w, now: time.Now}
}

// LogSecurityEvent writes one event line.
func (sl *SecurityLogger) LogSecurityEvent(eventType, details, ipAddress string) {
	if sl == nil || sl.out == nil {
		return
	}
	timestamp := sl.now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("[%s] %s - %s - IP: %s\n", timestamp, eventType, details, ipAddress)

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if _, err := io.WriteString(sl.out, entry); err != nil {
		log.Printf("SecurityLogger - write failed: %v", err)
	}
}

// Close closes the underlying file, if any.
func (sl *SecurityLogger) Close() error {
	if sl == nil {
		return nil
	}
	if c, ok := sl.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
