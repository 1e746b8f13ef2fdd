// Package secrets resolves credentials from configuration values that may
// reference environment variables or Docker/Kubernetes secret files, so the
// upstream password and service tokens never have to be written into
// config.yaml.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/rqm-etl/internal/errors"
)

const (
	// maxSecretFileSize limits secret file reads; secrets are tokens and
	// passwords, not documents
	maxSecretFileSize = 64 * 1024

	// group and other permission bits
	permissiveBits = 0o077
)

// Source says where a resolved secret came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceLiteral Source = "literal"
)

// Secret is a resolved credential. Value must never be logged.
type Secret struct {
	Value  string
	Source Source
	// Insecure is set when the secret file is readable by group or other.
	Insecure bool
}

// ExpandString replaces ${VAR} and ${VAR:-default} references in s with
// environment values. Anything else, including a bare $ inside a password,
// is left alone. A referenced variable that is unset and has no default is
// an error naming the variable.
func ExpandString(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var (
		b       strings.Builder
		missing []string
	)
	rest := s
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			// unterminated reference is literal text
			b.WriteString(rest)
			break
		}
		end += start

		b.WriteString(rest[:start])
		name, fallback, hasFallback := strings.Cut(rest[start+2:end], ":-")
		switch value := os.Getenv(name); {
		case value != "":
			b.WriteString(value)
		case hasFallback:
			b.WriteString(fallback)
		default:
			missing = append(missing, name)
		}
		rest = rest[end+1:]
	}

	if len(missing) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return b.String(), nil
}

// ReadFile reads a secret from path, trimming trailing newlines. The file
// must be a regular, non-empty file no larger than 64 KiB.
func ReadFile(path string) (Secret, error) {
	if path == "" {
		return Secret{}, fileError(fmt.Errorf("secret file path is empty"), path)
	}
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return Secret{}, fileError(err, cleanPath)
	}
	if !info.Mode().IsRegular() {
		return Secret{}, fileError(fmt.Errorf("secret path is not a regular file"), cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return Secret{}, fileError(fmt.Errorf("secret file too large (max %d bytes)", maxSecretFileSize), cleanPath)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Secret{}, fileError(err, cleanPath)
	}

	// trailing newlines only; leading and inner spaces can be intentional
	value := strings.TrimRight(string(data), "\r\n")
	if value == "" {
		return Secret{}, fileError(fmt.Errorf("secret file is empty"), cleanPath)
	}

	return Secret{
		Value:    value,
		Source:   SourceFile,
		Insecure: info.Mode().Perm()&permissiveBits != 0,
	}, nil
}

// Resolve picks the secret from filePath when set, otherwise from value
// with ${VAR} references expanded.
func Resolve(filePath, value string) (Secret, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	if value == "" {
		return Secret{Source: SourceNone}, nil
	}

	expanded, err := ExpandString(value)
	if err != nil {
		return Secret{}, err
	}
	source := SourceLiteral
	if strings.Contains(value, "${") {
		source = SourceEnv
	}
	return Secret{Value: expanded, Source: source}, nil
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("path", path).
		Build()
}
