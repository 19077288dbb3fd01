package config

import (
	"os"
	"strconv"
	"strings"
)

// Keys recognised by the site. Anything else in the environment is carried
// along untouched.
const (
	DatabaseURL        = "DATABASE_URL"
	DatabaseReplicaURL = "DATABASE_REPLICA_URL"
	SecretKey          = "SECRET_KEY"
	AdminPassword      = "ADMIN_PASSWORD"
	MaxContentLength   = "MAX_CONTENT_LENGTH"
	SSMParameterPath   = "SSM_PARAMETER_PATH"
)

const (
	DefaultDatabaseURL      = "sqlite:///dev.db"
	DefaultSecretKey        = "dev-secret"
	DefaultAdminPassword    = "changeme"
	DefaultMaxContentLength = 16 * 1024 * 1024
)

func New() map[string]string {
	environ := os.Environ()
	envAsMap := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry != "" {
			key, value := split(entry)
			envAsMap[key] = value
		}
	}
	return envAsMap
}

// assumes entry is not the empty string
func split(entry string) (key, value string) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func GetString(config map[string]string, key string, defaultValue string) string {
	if config == nil {
		return defaultValue
	}

	if val, ok := config[key]; ok && val != "" {
		return val
	}
	return defaultValue
}

func GetInt(config map[string]string, key string, defaultValue int) int {
	return int(GetInt64(config, key, int64(defaultValue)))
}

func GetInt64(config map[string]string, key string, defaultValue int64) int64 {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asInt, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return defaultValue
	}

	return asInt
}

func GetBool(config map[string]string, key string, defaultValue bool) bool {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asBool, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return defaultValue
	}
	return asBool
}

// NormalizeDatabaseURL rewrites the legacy postgres:// scheme some hosting
// providers hand out into the postgresql:// form.
func NormalizeDatabaseURL(url string) string {
	if strings.HasPrefix(url, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}

// GetDatabaseURL returns the normalized store connection string.
func GetDatabaseURL(config map[string]string) string {
	return NormalizeDatabaseURL(GetString(config, DatabaseURL, DefaultDatabaseURL))
}
