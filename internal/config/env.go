package config

import (
    "log/slog"
    "os"
    "strconv"
    "time"
)

// Optional variables fall back to their default when unset or unparsable.

func envStr(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func envBool(key string, def bool) bool {
    switch os.Getenv(key) {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return def
}

func envInt(key string, def int) int {
    if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
        return n
    }
    return def
}

// envPositiveInt is envInt for quantities that must be at least 1, such as
// prices and quotas.  A zero or negative value is reported and replaced by def.
func envPositiveInt(key string, def int) int {
    n := envInt(key, def)
    if n < 1 {
        slog.Warn("config: value must be at least 1, using default", "key", key, "value", n, "default", def)
        return def
    }
    return n
}

func envDur(key string, def time.Duration) time.Duration {
    if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
        return d
    }
    return def
}
