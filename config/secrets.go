package config

import (
	"context"
	"fmt"
	"os"
)

// LoadSecretsFromEnv fills in secret material that must never live in config
// files. Called for production environments after the regular load.
func (c *Config) LoadSecretsFromEnv(_ context.Context) error {
	switch c.Storage.Adapter {
	case "sql":
		if dsn := os.Getenv("SHANYRAK_SQL_DSN"); dsn != "" {
			c.Storage.SQL.DSN = dsn
		}
		if c.Storage.SQL.DSN == "" {
			return fmt.Errorf("SHANYRAK_SQL_DSN is required for the sql adapter in production")
		}
	case "redis":
		if pw := os.Getenv("SHANYRAK_REDIS_PASSWORD"); pw != "" {
			c.Storage.Redis.Password = pw
		}
	}
	return nil
}
