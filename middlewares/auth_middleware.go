package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// Context keys set by the auth middlewares.
const (
	CtxUserID   = "user_id"
	CtxEmail    = "email"
	CtxRole     = "role"
	CtxUser     = "user"
	CtxToken    = "token"
	CtxTokenExp = "token_exp"
)

const loginPath = "/auth/login"

// UserLoader resolves the user behind a token. The returned role must come
// from the server's allow-list, not from the token.
type UserLoader interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// LoginURL builds the login redirect that remembers where to come back to.
func LoginURL(next string) string {
	next = utils.SafeRedirect(next, "")
	if next == "" {
		return loginPath
	}
	return loginPath + "?next=" + next
}

// AuthMiddleware requires a valid bearer token. Unauthenticated callers
// get a 401 whose data carries login_url built from loginNext.
func AuthMiddleware(users UserLoader, loginNext string) gin.HandlerFunc {
	loginData := gin.H{"login_url": LoginURL(loginNext)}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("authorization header missing"), loginData)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("invalid authorization format"), loginData)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if !authenticate(c, users, tokenString) {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("invalid or expired token"), loginData)
			return
		}
		c.Next()
	}
}

// authenticate verifies the token, reloads the user and fills the context.
func authenticate(c *gin.Context, users UserLoader, tokenString string) bool {
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return false
	}
	user, err := users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		utils.ErrorLogger.Warnf("Token for user %d rejected: %v", claims.UserID, err)
		return false
	}

	c.Set(CtxUserID, user.ID)
	c.Set(CtxEmail, user.Email)
	c.Set(CtxRole, user.Role)
	c.Set(CtxUser, user)
	c.Set(CtxToken, tokenString)
	if claims.ExpiresAt != nil {
		c.Set(CtxTokenExp, claims.ExpiresAt.Time)
	} else {
		c.Set(CtxTokenExp, time.Now().Add(utils.JWTTTL))
	}
	return true
}

// CurrentUser returns the user loaded by the auth middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
