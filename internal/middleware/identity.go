package middleware

// identity.go defines helpers shared across middleware files. The rate
// limiter keys its windows by account where possible, so it needs the
// account id JWTAuth stored in the context, falling back to "guest"
// for unauthenticated traffic.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentAccountID renders the authenticated account id as a string,
// or "guest" when the request carries no usable identity.
func currentAccountID(c echo.Context) string {
	switch v := c.Get("account_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return "guest"
}
