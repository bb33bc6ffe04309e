package file

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// EnvFile is the dotenv file name looked up in the working and data directories.
const EnvFile = ".env"

// LoadEnv loads each existing dotenv file into the process environment.
// Variables already set are never overridden, and missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}
