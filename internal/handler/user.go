package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/blog-backend/internal/auth"
	"github.com/iliyamo/blog-backend/internal/config"
	"github.com/iliyamo/blog-backend/internal/httperr"
	"github.com/iliyamo/blog-backend/internal/metrics"
	"github.com/iliyamo/blog-backend/internal/model"
	"github.com/iliyamo/blog-backend/internal/queue"
	"github.com/iliyamo/blog-backend/internal/repository"
	"github.com/iliyamo/blog-backend/internal/utils"
)

// UserHandler bundles dependencies for the /users endpoints.
type UserHandler struct {
	Cfg       config.Config
	Users     *repository.UserRepo
	Issuer    *auth.Issuer
	Blacklist auth.Blacklist
	Events    queue.Publisher
	Log       *zap.Logger
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo, iss *auth.Issuer, bl auth.Blacklist, ev queue.Publisher, log *zap.Logger) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Issuer: iss, Blacklist: bl, Events: ev, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type logoutReq struct {
	Token string `json:"token"`
}

type loginResp struct {
	Token  string `json:"token"`
	UserID uint64 `json:"userId"`
}

// GetUser answers 200 with the public user, or 200 with null when no user
// has that id.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := httperr.PathID(c, "userId")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusOK, nil)
		}
		return fmt.Errorf("get user %d: %w", id, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Register creates an account.  The email is checked before any hashing so
// duplicate sign-ups stay cheap; the unique index catches the race.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Email = repository.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, err := h.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return emailTaken(c)
	case !errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("lookup email: %w", err)
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return httperr.Invalid("password", "must be at most 72 bytes")
		}
		return fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{Email: req.Email, Name: req.Name, PasswordHash: hash}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return emailTaken(c)
		}
		return fmt.Errorf("create user: %w", err)
	}

	h.Log.Info("user registered", zap.Uint64("user_id", u.ID))
	publishAsync(h.Events, h.Log, queue.Event{Type: queue.UserRegistered, UserID: u.ID})
	return c.JSON(http.StatusCreated, u)
}

func emailTaken(c echo.Context) error {
	return c.JSON(http.StatusConflict, echo.Map{
		"error":   "email already exists",
		"details": echo.Map{"email": "this email address is already registered"},
	})
}

// Login checks the credentials and returns a fresh access token.  Nothing is
// stored server-side.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.AuthLogins.WithLabelValues("unknown_user").Inc()
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return fmt.Errorf("lookup email: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		metrics.AuthLogins.WithLabelValues("bad_password").Inc()
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid password"})
	}

	token, _, err := h.Issuer.Issue(u.ID, h.Cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	metrics.AuthLogins.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, loginResp{Token: token, UserID: u.ID})
}

// Logout revokes the token given in the body exactly as sent.  The token is
// not checked; any non-empty string is rejected from now on.
func (h *UserHandler) Logout(c echo.Context) error {
	var req logoutReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	token := req.Token
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no token provided"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Blacklist.Add(ctx, token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	metrics.AuthRevocations.Inc()
	return c.NoContent(http.StatusOK)
}
