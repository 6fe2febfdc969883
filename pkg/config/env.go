package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvironMap converts KEY=VALUE pairs into a mapping
func EnvironMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

// LoadEnv returns the process environment layered over the variables in
// dotenvPath. Process variables win. A missing dotenv file is ignored.
func LoadEnv(dotenvPath string) (map[string]string, error) {
	env := map[string]string{}

	if dotenvPath != "" {
		fileEnv, err := godotenv.Read(dotenvPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}

	for k, v := range EnvironMap(os.Environ()) {
		env[k] = v
	}

	return env, nil
}
