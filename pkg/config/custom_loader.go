package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the given .env files. With no
// arguments it loads the default .env from the working directory. Files are
// applied in order with later files taking precedence.
func LoadEnv(filenames ...string) error {
	if len(filenames) == 0 {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load default .env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Overload(filenames...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics on failure. Use for env files
// the service cannot start without.
func MustLoadEnv(filenames ...string) {
	if err := LoadEnv(filenames...); err != nil {
		panic(err)
	}
}

// ResetCache clears all cached configuration values. Intended for tests
// that mutate the process environment between loads.
func ResetCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
}

// ForceReloadConfig re-parses the environment into v, replacing any cached
// value for its type.
func ForceReloadConfig[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	typeName := getTypeName[T]()

	globalCache.mu.Lock()
	delete(globalCache.values, typeName)
	delete(globalCache.onces, typeName)
	globalCache.mu.Unlock()

	return Load(v)
}
