package config

import "log"

// MustSecrets aborts boot when either JWT secret is unset. Signing tokens
// with an empty secret would silently produce forgeable sessions.
func (c *Config) MustSecrets() {
	if len(c.JWTSecret) == 0 {
		log.Fatal("missing required env JWT_SECRET")
	}
	if len(c.JWTRefreshSecret) == 0 {
		log.Fatal("missing required env JWT_REFRESH_SECRET")
	}
}
