package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DotEnvDisableEnv turns dotenv loading off when set to 0/false/off/no.
const DotEnvDisableEnv = "TWITTER_ON_SLACK_DOTENV"

// LoadDotEnv loads .env.local and .env from the working directory, plus any
// explicit extra files. Variables already present in the environment win.
// Missing default files are skipped; a missing explicit file is an error.
func LoadDotEnv(logger logrus.FieldLogger, extra ...string) error {
	if IsDotEnvDisabled() {
		return nil
	}

	type candidate struct {
		path     string
		optional bool
	}
	paths := []candidate{{".env.local", true}, {".env", true}}
	for _, p := range extra {
		if strings.TrimSpace(p) != "" {
			paths = append(paths, candidate{strings.TrimSpace(p), false})
		}
	}

	seen := make(map[string]struct{}, len(paths))
	for _, c := range paths {
		p := filepath.Clean(c.path)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		if err := godotenv.Load(p); err != nil {
			if c.optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		if logger != nil {
			logger.Debugf("loaded env from %s", p)
		}
	}
	return nil
}

func IsDotEnvDisabled() bool {
	v := strings.TrimSpace(os.Getenv(DotEnvDisableEnv))
	switch strings.ToLower(v) {
	case "0", "false", "off", "no":
		return true
	default:
		return false
	}
}
