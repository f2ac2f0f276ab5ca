package config

import (
    "bytes"
    "log/slog"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestEnvHelpersFallBack(t *testing.T) {
    t.Setenv("TIX_INT", "oops")
    t.Setenv("TIX_DUR", "90s")
    t.Setenv("TIX_BOOL", "off")

    assert.Equal(t, 7, envInt("TIX_INT", 7))
    assert.Equal(t, 90*time.Second, envDur("TIX_DUR", time.Hour))
    assert.False(t, envBool("TIX_BOOL", true))
    assert.True(t, envBool("TIX_UNSET_BOOL", true))
    assert.Equal(t, "x", envStr("TIX_UNSET_STR", "x"))
}

func TestPositiveIntRejectsZeroAndNegative(t *testing.T) {
    t.Setenv("CODE_PRICE_POINTS", "0")
    assert.Equal(t, 100, envPositiveInt("CODE_PRICE_POINTS", 100))
    t.Setenv("CODE_PRICE_POINTS", "-50")
    assert.Equal(t, 100, envPositiveInt("CODE_PRICE_POINTS", 100))
    t.Setenv("CODE_PRICE_POINTS", "250")
    assert.Equal(t, 250, envPositiveInt("CODE_PRICE_POINTS", 100))
    assert.Equal(t, 5, envPositiveInt("TIX_UNSET_QUOTA", 5))
}

func TestSplitList(t *testing.T) {
    assert.Equal(t, []string{"a@x.io", "b@x.io"}, splitList(" a@x.io, ,b@x.io "))
    assert.Nil(t, splitList(""))
}

func TestRateLimitNormalized(t *testing.T) {
    c := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: time.Second}.normalized()
    assert.Equal(t, 1, c.Capacity)
    assert.Equal(t, 1, c.RefillTokens)
    assert.Equal(t, time.Second, c.RefillInterval)
    assert.Equal(t, 5*time.Second, c.TTL)
}

func TestRedisOptionsHostPort(t *testing.T) {
    t.Setenv("REDIS_HOST", "cache")
    t.Setenv("REDIS_PORT", "6380")
    t.Setenv("REDIS_DB", "2")
    opts := RedisOptions()
    assert.Equal(t, "cache:6380", opts.Addr)
    assert.Equal(t, 2, opts.DB)
    assert.Nil(t, opts.TLSConfig)
}

func TestNewLoggerJSON(t *testing.T) {
    var buf bytes.Buffer
    logger := NewLogger(&buf, "warn", "json")
    logger.Info("hidden")
    logger.Warn("shown", slog.String("k", "v"))
    assert.NotContains(t, buf.String(), "hidden")
    assert.Contains(t, buf.String(), `"k":"v"`)
}
