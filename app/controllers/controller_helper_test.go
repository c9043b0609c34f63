package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                       "/dashboard",
		"/papers?page=2":         "/papers?page=2",
		"  /library/roman  ":     "/library/roman",
		"https://evil.example":   "/dashboard",
		"//evil.example/path":    "/dashboard",
		"/\\evil.example":        "/dashboard",
		"javascript:alert(1)":    "/dashboard",
		"dashboard":              "/dashboard",
		"/subscription#formules": "/subscription#formules",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}

func TestPageQueryDropsPage(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(string(pageQuery(c)))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/?subject=3&page=4&q=bac+2023", nil))
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, "q=bac+2023&subject=3", body)
}

func TestIsXHR(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if isXHR(c) {
			return c.SendString("json")
		}
		return c.SendString("html")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "html", readBody(t, resp))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "json", readBody(t, resp))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderAccept, "application/json, text/plain")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "json", readBody(t, resp))
}

func TestClientIPHonoursOnlyTrustedProxies(t *testing.T) {
	// app.Test connections come from 0.0.0.0
	tests := []struct {
		name    string
		proxies []string
		header  string
		set     map[string]string
		want    string
	}{
		{
			name: "no proxies ignores forwarded header",
			set:  map[string]string{fiber.HeaderXForwardedFor: "203.0.113.9"},
			want: "0.0.0.0",
		},
		{
			name:    "untrusted peer cannot spoof",
			proxies: []string{"10.0.0.1", "172.16.0.0/12"},
			set:     map[string]string{fiber.HeaderXForwardedFor: "203.0.113.9"},
			want:    "0.0.0.0",
		},
		{
			name:    "trusted peer forwards first valid address",
			proxies: []string{"0.0.0.0"},
			set:     map[string]string{fiber.HeaderXForwardedFor: "nonsense, 203.0.113.9, 10.0.0.1"},
			want:    "203.0.113.9",
		},
		{
			name:    "custom header from trusted range",
			proxies: []string{"0.0.0.0/8"},
			header:  "CF-Connecting-IP",
			set: map[string]string{
				"CF-Connecting-IP":        "198.51.100.4",
				fiber.HeaderXForwardedFor: "203.0.113.9",
			},
			want: "198.51.100.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg fiber.Config
			TrustProxies(&cfg, tt.proxies, tt.header)
			app := fiber.New(cfg)
			app.Get("/", func(c *fiber.Ctx) error {
				return c.SendString(clientOf(c).IP)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.set {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, readBody(t, resp))
		})
	}
}

func TestTrustProxiesLeavesConfigAloneWithoutProxies(t *testing.T) {
	var cfg fiber.Config
	TrustProxies(&cfg, nil, "CF-Connecting-IP")
	assert.Empty(t, cfg.ProxyHeader)
	assert.False(t, cfg.EnableTrustedProxyCheck)

	TrustProxies(&cfg, []string{"10.0.0.1"}, "")
	assert.Equal(t, fiber.HeaderXForwardedFor, cfg.ProxyHeader)
	assert.True(t, cfg.EnableTrustedProxyCheck)
	assert.True(t, cfg.EnableIPValidation)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.TrustedProxies)
}
