package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/hashfleet/hashfleet/apitypes"
)

// Handler is the session lifecycle surface exposed to HTTP handlers.
type Handler interface {
	Middleware() echo.MiddlewareFunc

	Start(c echo.Context, data Data) error
	Destroy(c echo.Context) error
	Refresh(c echo.Context) error
	Rotate(c echo.Context) error
	UpdateData(c echo.Context, fn func(*Data) error) error
}

// CookieHandler implements Handler with a signed cookie pointing at a Store
// entry.
type CookieHandler struct {
	Store      Store
	Secret     []byte
	Lifetime   time.Duration
	CookieName string
	// SkipPaths pass through the middleware without a session (login
	// endpoints, health checks).
	SkipPaths []string
}

func (h *CookieHandler) cookieName() string {
	if h.CookieName == "" {
		return DefaultCookieName
	}
	return h.CookieName
}

func (h *CookieHandler) shouldSkip(c echo.Context) bool {
	path := c.Request().URL.Path
	for _, skip := range h.SkipPaths {
		if path == skip {
			return true
		}
	}
	return false
}

// Middleware authenticates each request. A missing cookie yields a 401 with
// code auth_required; a cookie whose token or backing session is invalid or
// expired yields a 401 with code session_expired. Skip paths pass through
// unauthenticated either way.
func (h *CookieHandler) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(h.cookieName())
			if err != nil || cookie.Value == "" {
				if h.shouldSkip(c) {
					return next(c)
				}
				return errAuthRequired()
			}

			sid, err := parseCookieToken(h.Secret, cookie.Value)
			if err != nil {
				if h.shouldSkip(c) {
					return next(c)
				}
				return errSessionExpired()
			}

			data, err := h.Store.Get(c.Request().Context(), sid)
			if err != nil {
				if h.shouldSkip(c) {
					return next(c)
				}
				return errSessionExpired()
			}

			c.Set(dataContextKey, *data)
			c.Set(idContextKey, sid)
			return next(c)
		}
	}
}

func (h *CookieHandler) Start(c echo.Context, data Data) error {
	sid, err := h.Store.Create(c.Request().Context(), data, h.Lifetime)
	if err != nil {
		return err
	}

	c.Set(dataContextKey, data)
	c.Set(idContextKey, sid)
	return h.setCookie(c, sid, time.Now().Add(h.Lifetime))
}

// Destroy removes the backing session and clears the cookie. It never fails
// from the caller's perspective: a missing session still results in a
// cleared cookie.
func (h *CookieHandler) Destroy(c echo.Context) error {
	if sid := idFromContext(c); sid != "" {
		if err := h.Store.Delete(c.Request().Context(), sid); err != nil {
			log.Warn().Err(err).Msg("failed to delete session on logout")
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cookieName(),
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Refresh slides the session window and re-issues the cookie with the new
// expiry.
func (h *CookieHandler) Refresh(c echo.Context) error {
	sid := idFromContext(c)
	if sid == "" {
		return errAuthRequired()
	}

	if err := h.Store.Touch(c.Request().Context(), sid, h.Lifetime); err != nil {
		return errSessionExpired()
	}
	return h.setCookie(c, sid, time.Now().Add(h.Lifetime))
}

// Rotate re-keys the session, keeping its data and expiry.
func (h *CookieHandler) Rotate(c echo.Context) error {
	sid := idFromContext(c)
	if sid == "" {
		return errAuthRequired()
	}

	newID, err := h.Store.Rotate(c.Request().Context(), sid)
	if err != nil {
		return err
	}

	c.Set(idContextKey, newID)
	return h.setCookie(c, newID, time.Now().Add(h.Lifetime))
}

func (h *CookieHandler) UpdateData(c echo.Context, fn func(*Data) error) error {
	sid := idFromContext(c)
	if sid == "" {
		return errAuthRequired()
	}

	if err := h.Store.Update(c.Request().Context(), sid, fn); err != nil {
		return err
	}

	// keep the request-scoped copy in sync for later reads in this request
	data, err := h.Store.Get(c.Request().Context(), sid)
	if err != nil {
		return err
	}
	c.Set(dataContextKey, *data)
	return nil
}

func (h *CookieHandler) setCookie(c echo.Context, sid string, expires time.Time) error {
	token, err := signCookieToken(h.Secret, sid, expires)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cookieName(),
		Value:    token,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func errAuthRequired() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, apitypes.ErrorResponseDTO{
		Message: "Authentication required",
		Code:    apitypes.ErrorCodeAuthRequired,
	})
}

func errSessionExpired() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, apitypes.ErrorResponseDTO{
		Message: "Session is invalid or expired",
		Code:    apitypes.ErrorCodeSessionExpired,
	})
}
