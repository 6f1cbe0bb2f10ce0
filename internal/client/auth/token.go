// Package auth получает access token клиента и извлекает из него
// идентификатор пользователя. Выдача токенов - забота сервера.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/listsync/internal/client/iocli"
)

// TokenEnv - переменная окружения с access token
const TokenEnv = "LISTSYNC_TOKEN"

// ErrNoToken is returned when no source provided a token
var ErrNoToken = errors.New("access token is empty")

// TokenSources - источники токена из флагов командной строки
type TokenSources struct {
	FromFile string
	FromArgs string
}

// Claims - поля токена, которые нужны клиенту
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ResolveToken reads the access token from various sources with priority:
// 1. Environment variable LISTSYNC_TOKEN
// 2. File specified in sources.FromFile
// 3. Command-line parameter sources.FromArgs
// 4. Interactive prompt (fallback, only when io is not nil)
func ResolveToken(sources TokenSources, io iocli.IO) (string, error) {
	// Priority 1: Environment variable
	if envToken := strings.TrimSpace(os.Getenv(TokenEnv)); envToken != "" {
		return envToken, nil
	}

	// Priority 2: File
	if sources.FromFile != "" {
		content, err := os.ReadFile(sources.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
		// Убираем trailing newline/whitespace
		token := strings.TrimSpace(string(content))
		if token == "" {
			return "", fmt.Errorf("token file is empty")
		}
		return token, nil
	}

	// Priority 3: CLI parameter
	if sources.FromArgs != "" {
		return sources.FromArgs, nil
	}

	// Priority 4: Interactive prompt
	if io == nil {
		return "", ErrNoToken
	}
	token, err := io.ReadPassword("Access token: ")
	if err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// ParseClaims читает claims без проверки подписи: подпись проверяет сервер,
// клиенту нужен только идентификатор пользователя для локальной сессии.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no user_id claim")
	}
	return claims, nil
}
