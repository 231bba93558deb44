package handler

import (
	"net/http"
	"net/url"
	"time"

	"salescrm/internal/apierror"
	"salescrm/internal/dto"
	"salescrm/internal/middleware"
	"salescrm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// FlashCookie carries a one-shot message across a form redirect.
const FlashCookie = "flash"

// CookieSettings describes the session cookie handed out at login.
type CookieSettings struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	svc    service.AuthService
	cookie CookieSettings
}

func NewAuthHandler(svc service.AuthService, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
}

func setFlash(c *gin.Context, msg string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, url.QueryEscape(msg), 60, "/", "", false, true)
}

// Register creates an account. Form posts are answered with redirects and a
// flash cookie; JSON clients get a JSON body.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	err := bind(c, &req)
	if err == nil {
		err = h.svc.Register(c.Request.Context(), req)
	}

	if !isJSON(c) {
		if err != nil {
			if apierror.HTTPStatus(err) >= http.StatusInternalServerError {
				log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("registration failed")
			}
			setFlash(c, apierror.Response(err).Error)
			c.Redirect(http.StatusSeeOther, "/register")
			return
		}
		setFlash(c, "Registration successful. Please log in.")
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.RegisterResponse{
		Success:  true,
		Message:  "Registration successful. Please log in.",
		Redirect: "/login",
	})
}

// Login verifies credentials, sets the session cookie and returns the token
// for clients that prefer an Authorization header.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.LoginResponse{Success: false, Error: "Invalid request body"})
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		status := apierror.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("login failed")
		}
		c.JSON(status, dto.LoginResponse{Success: false, Error: apierror.Response(err).Error})
		return
	}

	h.setSessionCookie(c, res.Token, int(h.cookie.MaxAge.Seconds()))
	c.JSON(http.StatusOK, dto.LoginResponse{
		Success:   true,
		Message:   "Login successful",
		Username:  res.Session.Username,
		Redirect:  res.Redirect,
		Token:     res.Token,
		ExpiresAt: res.Session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout ends the caller's session, if any. Always succeeds for callers
// without one.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.GetSession(c)); err != nil {
		respondError(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, dto.LogoutResponse{Message: "Logged out successfully", Redirect: "/login"})
}

// ResetUsers deletes every account and sends the caller to registration.
func (h *AuthHandler) ResetUsers(c *gin.Context) {
	n, err := h.svc.ResetUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	caller := ""
	if s := middleware.GetSession(c); s != nil {
		caller = s.Username
		_ = h.svc.Logout(c.Request.Context(), s)
	}
	log.Warn().Str("username", caller).Int64("deleted_count", n).Msg("all users reset")

	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/register")
}
