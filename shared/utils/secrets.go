package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsDir - стандартный путь Docker Secrets.
const DefaultSecretsDir = "/run/secrets"

// ErrSecretNotFound is returned by ReadOptionalSecret callers to tell "absent" from "broken".
var ErrSecretNotFound = errors.New("secret not found")

// secretsDir позволяет переопределить каталог секретов при локальном запуске.
func secretsDir() string {
	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		return dir
	}
	return DefaultSecretsDir
}

// ReadSecret читает обязательный секрет из файла. Fallback на env нет.
func ReadSecret(secretName string) (string, error) {
	filePath := filepath.Join(secretsDir(), secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, filePath)
		}
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadOptionalSecret возвращает "" без ошибки, если файла нет.
func ReadOptionalSecret(secretName string) (string, error) {
	secret, err := ReadSecret(secretName)
	if errors.Is(err, ErrSecretNotFound) {
		return "", nil
	}
	return secret, err
}
