package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func csrfRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CSRF())
	r.GET("/form", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/form", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func fetchCSRFToken(t *testing.T, r *gin.Engine) (*http.Cookie, string) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := w.Result()
	defer resp.Body.Close()

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.NotEmpty(t, cookie.Value)

	header := resp.Header.Get(CSRFHeaderName)
	require.Equal(t, cookie.Value, header)
	return cookie, header
}

func TestCSRFIssuesTokenOnSafeMethod(t *testing.T) {
	fetchCSRFToken(t, csrfRouter())
}

func TestCSRFAcceptsMatchingToken(t *testing.T) {
	r := csrfRouter()
	cookie, token := fetchCSRFToken(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/form", nil)
	req.AddCookie(cookie)
	req.Header.Set(CSRFHeaderName, token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestCSRFRejectsMissingOrMismatchedToken(t *testing.T) {
	r := csrfRouter()
	cookie, _ := fetchCSRFToken(t, r)

	// No header at all.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/form", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Header present but wrong.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/form", nil)
	req.AddCookie(cookie)
	req.Header.Set(CSRFHeaderName, "forged-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
