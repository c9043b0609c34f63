package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	Env = map[string]string{"APP_PORT": "4100"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("APP_PORT", "5000")

	assert.Equal(t, "4100", GetEnv("APP_PORT", "4000"))
}

func TestGetEnvFallsBackToProcessEnvironment(t *testing.T) {
	Env = map[string]string{}
	t.Cleanup(func() { Env = nil })
	t.Setenv("CACHE_HOST", "redis")

	assert.Equal(t, "redis", GetEnv("CACHE_HOST", "localhost"))
	assert.Equal(t, "fallback", GetEnv("UNSET_KEY_FOR_TEST", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	Env = map[string]string{"GOOD": "12", "BAD": "twelve"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 12, GetEnvInt("GOOD", 3))
	assert.Equal(t, 3, GetEnvInt("BAD", 3))
	assert.Equal(t, 7, GetEnvInt("MISSING_INT_FOR_TEST", 7))
}

func TestGetEnvList(t *testing.T) {
	Env = map[string]string{"TRUSTED_PROXIES": " 10.0.0.1, ,172.16.0.0/12,"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, GetEnvList("TRUSTED_PROXIES"))
	assert.Nil(t, GetEnvList("MISSING_LIST_FOR_TEST"))
}

func TestIsDev(t *testing.T) {
	Env = map[string]string{"APP_ENV": "dev"}
	t.Cleanup(func() { Env = nil })
	assert.True(t, IsDev())

	Env["APP_ENV"] = "prod"
	assert.False(t, IsDev())
}
