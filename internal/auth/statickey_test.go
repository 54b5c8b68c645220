package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyStaticKey(t *testing.T) {
	assert.NoError(t, VerifyStaticKey("s3cret", "s3cret"))
	assert.NoError(t, VerifyStaticKey("s3cret", "  s3cret  "))

	err := VerifyStaticKey("s3cret", "wrong")
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestVerifyStaticKeyFailsClosed(t *testing.T) {
	// No configured key means nobody gets in, including empty presenters.
	for _, presented := range []string{"", "anything"} {
		err := VerifyStaticKey("", presented)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, httpErr.Code)
	}
}

func TestStaticKeyMiddleware(t *testing.T) {
	e := echo.New()
	handler := StaticKeyMiddleware("s3cret")(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{name: "header key", header: "s3cret", wantStatus: http.StatusOK},
		{name: "query key", query: "s3cret", wantStatus: http.StatusOK},
		{name: "wrong key", header: "nope", wantStatus: http.StatusForbidden},
		{name: "missing key", wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target = "/?key=" + tt.query
			}
			req := httptest.NewRequest(http.MethodPost, target, nil)
			if tt.header != "" {
				req.Header.Set("X-Api-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler(c)
			if tt.wantStatus == http.StatusOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			httpErr, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, httpErr.Code)
		})
	}
}
