package mw

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/auth"
	"parking-share-backend/internal/authz"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/store"
)

const userKey = "user"

// Auth validates a Bearer access token and loads the caller into the
// context. The user is re-read on every request so a revoked verification
// or role change applies immediately.
func Auth(issuer *auth.Issuer, s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abort(c, apperr.ErrUnauthorized)
			return
		}
		claims, err := issuer.Parse(raw)
		if err != nil {
			abort(c, apperr.New(apperr.KindUnauthorized, "invalid token"))
			return
		}

		user, err := s.GetUser(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				abort(c, apperr.New(apperr.KindUnauthorized, "unknown user"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequireCapability rejects callers whose resolved capabilities lack want.
// It must run after Auth.
func RequireCapability(want authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authz.Resolve(CurrentUser(c)).Has(want) {
			abort(c, apperr.New(apperr.KindForbidden, "missing capability: "+want.String()))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user loaded by Auth, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

func abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": err.Message, "code": err.Kind})
}
