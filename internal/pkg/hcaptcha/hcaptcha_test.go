package hcaptcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSiteverify(t *testing.T, success bool, codes ...string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-secret", r.PostForm.Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{Success: success, ErrorCodes: codes})
	}))
	t.Cleanup(srv.Close)

	prev := VerifyURL
	VerifyURL = srv.URL
	t.Cleanup(func() { VerifyURL = prev })
}

func TestEnabledNeedsBothKeys(t *testing.T) {
	t.Setenv("HCAPTCHA_SECRET", "test-secret")
	t.Setenv("HCAPTCHA_SITEKEY", "")
	assert.False(t, Enabled())

	t.Setenv("HCAPTCHA_SITEKEY", "site-key")
	assert.True(t, Enabled())
	assert.Equal(t, "site-key", SiteKey())
}

func TestVerify(t *testing.T) {
	t.Setenv("HCAPTCHA_SECRET", "test-secret")

	t.Run("accepted", func(t *testing.T) {
		fakeSiteverify(t, true)
		ok, err := Verify(context.Background(), "token")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejected with codes", func(t *testing.T) {
		fakeSiteverify(t, false, "invalid-input-response")
		ok, err := Verify(context.Background(), "token")
		assert.False(t, ok)
		assert.ErrorContains(t, err, "invalid-input-response")
	})

	t.Run("empty token never calls the API", func(t *testing.T) {
		ok, err := Verify(context.Background(), "")
		assert.False(t, ok)
		assert.Error(t, err)
	})
}
