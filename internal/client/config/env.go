package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// parseEnv overlays cfg with BACKPACK_* variables. environ defaults to the
// process environment. Values from dotEnv fill in variables that environ
// does not set; a missing dotEnv file is not an error.
func parseEnv(cfg *Config, dotEnv string, environ []string) error {
	vars := map[string]string{}

	if dotEnv != "" {
		file, err := godotenv.Read(dotEnv)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read %s: %w", dotEnv, err)
		default:
			for k, v := range file {
				vars[k] = v
			}
		}
	}

	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: vars}); err != nil {
		return fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return nil
}
