// Package validation проверяет пользовательский ввод: заголовки списков,
// текст элементов, идентификаторы пользователей.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxTitleLen максимальная длина заголовка списка в символах
	MaxTitleLen = 200
	// MaxItemLen максимальная длина текста элемента в символах
	MaxItemLen = 1000
	// MaxDescriptionLen максимальная длина описания списка в символах
	MaxDescriptionLen = 2000
)

// UserIDPattern определяет допустимый формат идентификатора пользователя
// Латинские буквы, цифры, "_" и "-" (UUID подходит), длина 1-64
var UserIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateTitle проверяет заголовок списка
func ValidateTitle(title string) error {
	return validateLine("title", title, MaxTitleLen)
}

// ValidateItemContent проверяет текст элемента списка
func ValidateItemContent(content string) error {
	return validateLine("item text", content, MaxItemLen)
}

// ValidateDescription проверяет описание списка; пустое описание допустимо
func ValidateDescription(description string) error {
	if n := utf8.RuneCountInString(description); n > MaxDescriptionLen {
		return fmt.Errorf("description must not exceed %d characters", MaxDescriptionLen)
	}
	if !utf8.ValidString(description) {
		return fmt.Errorf("description is not valid UTF-8")
	}
	return nil
}

// ValidateUserID проверяет идентификатор пользователя для выпуска токена
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	if !UserIDPattern.MatchString(userID) {
		return fmt.Errorf("user id can only contain letters, numbers, '_' and '-', up to 64 characters")
	}
	return nil
}

// validateLine - однострочный непустой текст ограниченной длины
func validateLine(field, s string, maxLen int) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s is not valid UTF-8", field)
	}
	if utf8.RuneCountInString(s) > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", field, maxLen)
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return fmt.Errorf("%s must not contain control characters", field)
	}
	return nil
}
