package config

import "log"

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// MustMinBytes guards HMAC keys; HS256 with a short secret is brute-forceable.
func MustMinBytes(value []byte, n int, envName string) {
	if len(value) < n {
		log.Fatalf("env %s must be at least %d bytes", envName, n)
	}
}
