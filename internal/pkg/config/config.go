package config

import (
	"io"
	"time"
)

// Config is a read-only view over the application configuration.
//
// Missing keys resolve to the zero value of the requested type; callers apply
// their own defaults.
type Config interface {
	io.Closer

	// GetString returns the value for key as a string.
	GetString(key string) string
	// GetBool returns the value for key as a bool.
	GetBool(key string) bool
	// GetInt returns the value for key as an int.
	GetInt(key string) int
	// GetUint returns the value for key as a uint.
	GetUint(key string) uint
	// GetFloat64 returns the value for key as a float64.
	GetFloat64(key string) float64

	// GetSecond reads an integer value and scales it to seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer value and scales it to minutes.
	GetMinute(key string) time.Duration
	// GetHour reads an integer value and scales it to hours.
	GetHour(key string) time.Duration

	// GetBinary returns the base64 decoded value for key, or nil when it is not valid base64.
	GetBinary(key string) []byte
	// GetArray returns the value for key split on commas, dropping empty elements.
	GetArray(key string) []string
}
