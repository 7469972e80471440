package middleware

import (
	"net/http"

	"shopkit/internal/handler/httperr"
	"shopkit/internal/pkg/errs"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const storeIDKey = "store_id"

// RequireStore scopes every request to one store via the X-Store-ID header.
// Handlers read the parsed ID with GetStoreID; no query ever crosses stores.
func RequireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Store-ID")
		if raw == "" {
			httperr.AbortWithError(c, http.StatusBadRequest,
				errs.New("missing X-Store-ID header"),
				"invalid_request", "X-Store-ID header is required", nil)
			return
		}

		storeID, err := uuid.Parse(raw)
		if err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest,
				errs.Wrap(err, "invalid X-Store-ID header"),
				"invalid_request", "X-Store-ID header must be a UUID", nil)
			return
		}

		c.Set(storeIDKey, storeID)
		c.Next()
	}
}

func GetStoreID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(storeIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
