package handlers

import (
	"errors"
	"log"
	"net/http"

	"lojaonline/internal/session"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the session id.
const SessionCookie = "loja_session"

const (
	sessionKey      = "loja.session"
	sessionSavedKey = "loja.session.saved"
)

// SessionMiddleware loads the browser session, or starts a new one, and
// makes it available to the handlers. Handlers save it through render and
// redirect; anything left unsaved is saved once the handler returns.
//
// Saves are versioned: when two requests of one browser overlap, the first
// save wins and the later one is dropped with session.ErrConflict, so a cart
// emptied by checkout is not written back by a concurrent add.
func (h *Handler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var s *session.Session
		if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
			loaded, err := h.sessions.Load(c.Request.Context(), id)
			switch {
			case err == nil:
				s = loaded
			case errors.Is(err, session.ErrNotFound):
			default:
				log.Printf("SessionMiddleware - Error loading session: %v", err)
			}
		}
		if s == nil {
			s = session.New()
		}
		c.Set(sessionKey, s)

		c.Next()

		if !c.GetBool(sessionSavedKey) && !c.Writer.Written() {
			h.saveSession(c)
		}
	}
}

// RequireLogin redirects anonymous visitors to the login page.
func (h *Handler) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentSession(c).LoggedIn() {
			h.flashRedirect(c, session.FlashError, "Login necessário.", "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	s := session.New()
	c.Set(sessionKey, s)
	return s
}

// saveSession persists the session and refreshes the cookie. It must run
// before the response is written.
func (h *Handler) saveSession(c *gin.Context) {
	s := currentSession(c)
	err := h.sessions.Save(c.Request.Context(), s)
	switch {
	case errors.Is(err, session.ErrConflict):
		log.Printf("SessionMiddleware - session %s changed by another request, update dropped", s.ID)
	case err != nil:
		log.Printf("SessionMiddleware - Error saving session %s: %v", s.ID, err)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, s.ID, int(h.sessionTTL.Seconds()), "/", "", h.secureCookie, true)
	c.Set(sessionSavedKey, true)
}
