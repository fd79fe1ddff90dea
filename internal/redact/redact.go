// Package redact provides utilities for redacting sensitive information
// from strings before they are logged or returned in error responses. Error
// messages in this service can carry database connection strings, object
// storage references, presigned URLs and API keys; this package strips them
// before anything leaves the process boundary.
package redact

import (
	"regexp"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedRefPlaceholder        = "[REDACTED_REF]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

// Precompiled regex patterns
var (
	// Database connection strings
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|db|database|connection)://[^@\s]+@`)

	// API keys, secrets and tokens
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)
	// JWT token pattern - matches the standard three-part base64url-encoded format
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// Presigned object storage URLs carry the signature in query params
	presignedURLRegex = regexp.MustCompile(`(?i)X-Amz-[A-Za-z-]+=[^&\s]+`)

	// Artifact references and filesystem paths
	artifactRefRegex = regexp.MustCompile(`\bsheets/[\w-]+/[\w.-]+`)
	unixPathRegex    = regexp.MustCompile(`(/[\w.-]+){2,}`)

	// Host:port fragments from storage and database endpoints
	hostPortRegex = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)

	// SQL queries and fragments
	sqlRegex = regexp.MustCompile(
		`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|DATABASE)(?:[\s\w,*()='"]+)?`,
	)

	// All patterns in application order
	patterns = []*regexp.Regexp{
		dbConnRegex, apiKeyRegex, jwtTokenRegex, presignedURLRegex,
		artifactRefRegex, unixPathRegex, hostPortRegex, sqlRegex,
	}

	patternPlaceholders = map[*regexp.Regexp]string{
		dbConnRegex:       RedactedCredentialPlaceholder,
		apiKeyRegex:       RedactedKeyPlaceholder,
		jwtTokenRegex:     "[REDACTED_JWT]",
		presignedURLRegex: "[REDACTED_SIGNATURE]",
		artifactRefRegex:  RedactedRefPlaceholder,
		unixPathRegex:     "[REDACTED_PATH]",
		hostPortRegex:     "[REDACTED_HOST]",
		sqlRegex:          "[REDACTED_SQL]",
	}
)

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pattern := range patterns {
		placeholder := RedactionPlaceholder
		if ph, ok := patternPlaceholders[pattern]; ok {
			placeholder = ph
		}
		result = pattern.ReplaceAllString(result, placeholder)
	}

	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
