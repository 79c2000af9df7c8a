package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// QueryInt reads an integer query parameter, falling back to defaultValue
// when the parameter is absent or malformed.
func QueryInt(c *gin.Context, key string, defaultValue int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
