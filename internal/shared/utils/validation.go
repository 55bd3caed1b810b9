package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxIDLength   = 128
	MaxNameLength = 256
	MaxURLLength  = 4096
)

var (
	// AppIDPattern allows alphanumeric, dots, hyphens, underscores
	AppIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	// RepoPattern matches "owner/repo"
	RepoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateAppID validates an app id. App ids become directory names, so
// path separators and ".." are rejected.
func ValidateAppID(id string) error {
	if err := ValidateString(id, "app id", 1, MaxIDLength, true); err != nil {
		return err
	}
	if !AppIDPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("app id %q contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)", id)
	}
	return nil
}

// ValidateDownloadURL checks that a download source is an absolute http(s) URL
func ValidateDownloadURL(raw string) error {
	if err := ValidateString(raw, "download url", 1, MaxURLLength, true); err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid download url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("download url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("download url has no host")
	}
	return nil
}

// ValidateRepo validates an "owner/repo" reference
func ValidateRepo(repo string) error {
	if !RepoPattern.MatchString(repo) {
		return fmt.Errorf("repository reference %q must be owner/repo", repo)
	}
	return nil
}
