package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/polkiloo/artshop/internal/pkg/auth"
)

const (
	// OrderNumberContextKey is a gin context key for the order number a
	// receipt was issued for.
	OrderNumberContextKey = "orderNumber"
	receiptQueryParam     = "receipt"
)

// ReceiptParser resolves receipt tokens to order numbers.
type ReceiptParser interface {
	ParseReceipt(token string) (string, error)
}

// ReceiptRequired ensures the caller holds a valid order receipt.
func ReceiptRequired(parser ReceiptParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		number, err := parser.ParseReceipt(token)
		if err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(OrderNumberContextKey, number)
		c.Next()
	}
}

// extractToken reads the bearer token, falling back to the receipt query
// parameter used by links in confirmation e-mails.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query(receiptQueryParam))
}
