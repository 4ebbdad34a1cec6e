package commons

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"

	"pizzeria/internal/config"
)

// LoadConfig reads an optional dotenv file into the process environment and
// then builds the typed config from it. Variables already set win.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading env file: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}
