package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieName carries the session token for browser clients.
const CookieName = "sid"

// SetCookie issues the session cookie. maxAge is in seconds.
func SetCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", secure, true)
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}
