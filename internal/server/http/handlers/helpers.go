package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/artshop/internal/server/http/middleware"
)

// CurrentOrderNumber extracts the order number proven by the receipt.
func CurrentOrderNumber(c *gin.Context) string {
	val, ok := c.Get(middleware.OrderNumberContextKey)
	if !ok {
		return ""
	}
	number, _ := val.(string)
	return number
}

func amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
