package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hikari-games/guildwar/server/cache"
	"github.com/hikari-games/guildwar/server/config"
	mw "github.com/hikari-games/guildwar/server/middleware"
	"github.com/hikari-games/guildwar/server/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	sessionPrefix = "session:"
	authTimeout   = 2 * time.Second
)

// AuthHandler issues and revokes the player sessions the rest of the API
// authenticates against. Accounts double as player ids throughout the
// engine, so login is the only registration path.
type AuthHandler struct {
	db    *gorm.DB
	cache cache.Cache
	sec   config.SecurityConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, c cache.Cache, sec config.SecurityConfig) *AuthHandler {
	return &AuthHandler{db: db, cache: c, sec: sec}
}

type loginRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Password string `json:"password" binding:"required,min=4,max=64"`
}

// Login handles POST /api/auth/login. An unknown username is registered on
// the spot; a known one must present the matching password and an unbanned
// account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.resolveAccount(c, req.Username, req.Password)
	if err != nil {
		return // resolveAccount already wrote the response
	}

	token, err := h.openSession(c.Request.Context(), acc.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	// Best-effort login bookkeeping.
	_ = h.db.Model(acc).Updates(map[string]interface{}{
		"last_login_at": time.Now(),
		"last_login_ip": c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"account_id": acc.ID,
	})
}

// Logout handles POST /api/auth/logout. Dropping the session entry is all
// it takes: the auth middleware rejects tokens without one.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	h.closeSession(c.Request.Context(), token)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Refresh handles POST /api/auth/refresh: revoke the presented token and
// issue a fresh one for the same account.
func (h *AuthHandler) Refresh(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	if accountID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	h.closeSession(c.Request.Context(), bearerToken(c))
	token, err := h.openSession(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// resolveAccount loads the account for username, registering it if absent.
// On failure it writes the HTTP response and returns a non-nil error.
func (h *AuthHandler) resolveAccount(c *gin.Context, username, password string) (*model.Account, error) {
	var acc model.Account
	err := h.db.Where("username = ?", username).First(&acc).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, herr := bcrypt.GenerateFromPassword([]byte(password), 12)
		if herr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return nil, herr
		}
		acc = model.Account{
			Username:     username,
			PasswordHash: string(hash),
			Status:       1,
		}
		if cerr := h.db.Create(&acc).Error; cerr != nil {
			// A concurrent login may have registered the same name first.
			if isUniqueViolation(cerr) {
				c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			}
			return nil, cerr
		}
		return &acc, nil

	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, err

	default:
		if verr := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); verr != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return nil, verr
		}
		if acc.Status == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
			return nil, errors.New("account banned")
		}
		return &acc, nil
	}
}

// openSession mints a JWT and records it in the session cache so the auth
// middleware's Exists check passes.
func (h *AuthHandler) openSession(ctx context.Context, accountID int64) (string, error) {
	token, err := mw.GenerateToken(accountID, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		return "", err
	}
	cctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	_ = h.cache.Set(cctx, sessionPrefix+token, strconv.FormatInt(accountID, 10), h.sec.JWTTTLH)
	return token, nil
}

func (h *AuthHandler) closeSession(ctx context.Context, token string) {
	if token == "" {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	_ = h.cache.Del(cctx, sessionPrefix+token)
}

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
