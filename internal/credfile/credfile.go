// Package credfile fills missing configuration values from local credential
// files such as ~/.aws/credentials.
//
// Reading is best effort. A file that cannot be opened, read or decoded as
// UTF-8, or a rule whose pattern does not match, stops the fallback for that
// call and the caller proceeds with what it already has. Callers that want
// files to fail independently call Fill once per group.
package credfile

import (
	"os"
	"regexp"
	"unicode/utf8"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// Target is the configuration being filled
type Target[K comparable] interface {
	// IsSet reports whether key already has a value
	IsSet(key K) bool

	// Set stores value for key
	Set(key K, value string)
}

// Rule extracts one value. Pattern must have one capture group.
type Rule[K comparable] struct {
	Pattern *regexp.Regexp
	Key     K
}

// Group is a file and the rules applied to its content
type Group[K comparable] struct {
	Path  string
	Rules []Rule[K]
}

// Keys returns the target keys of every rule
func (g Group[K]) Keys() []K {
	keys := make([]K, len(g.Rules))
	for i, r := range g.Rules {
		keys[i] = r.Key
	}
	return keys
}

// Reader reads credential files
type Reader struct {
	// ReadFile defaults to os.ReadFile
	ReadFile func(path string) ([]byte, error)

	// Expand resolves a leading ~; defaults to homedir.Expand
	Expand func(path string) (string, error)

	Logger *zap.Logger
}

// NewReader returns a Reader backed by the local filesystem
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		ReadFile: os.ReadFile,
		Expand:   homedir.Expand,
		Logger:   logger,
	}
}

// Fill applies groups in order and returns the number of values set.
//
// A group whose keys are all set is skipped without touching its file. The
// first unreadable file or unmatched pattern ends the call; values filled
// before that point are kept.
func Fill[K comparable](r *Reader, target Target[K], groups ...Group[K]) int {
	filled := 0
	for _, g := range groups {
		if allSet(target, g) {
			continue
		}

		content, ok := r.read(g.Path)
		if !ok {
			return filled
		}

		for _, rule := range g.Rules {
			if target.IsSet(rule.Key) {
				continue
			}
			m := rule.Pattern.FindStringSubmatch(content)
			if len(m) < 2 || m[1] == "" {
				r.logger().Debug("credential file has no value for key",
					zap.String("path", g.Path), zap.Any("key", rule.Key))
				return filled
			}
			target.Set(rule.Key, m[1])
			filled++
		}
	}
	return filled
}

func allSet[K comparable](target Target[K], g Group[K]) bool {
	for _, key := range g.Keys() {
		if !target.IsSet(key) {
			return false
		}
	}
	return true
}

func (r *Reader) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Reader) read(path string) (string, bool) {
	logger := r.logger()

	expand := r.Expand
	if expand == nil {
		expand = homedir.Expand
	}
	resolved, err := expand(path)
	if err != nil {
		logger.Debug("credential file path not resolvable", zap.String("path", path), zap.Error(err))
		return "", false
	}

	readFile := r.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(resolved)
	if err != nil {
		logger.Debug("credential file not readable", zap.String("path", resolved), zap.Error(err))
		return "", false
	}
	if !utf8.Valid(data) {
		logger.Debug("credential file is not valid UTF-8", zap.String("path", resolved))
		return "", false
	}
	return string(data), true
}

// Pattern compiles an ini-style "name = value" matcher for name. The first
// occurrence in the file wins.
func Pattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(name) + `\s*=\s*(.*?)\s*$`)
}
