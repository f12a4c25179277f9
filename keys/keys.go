// Package keys builds and splits cache keys of the form "<prefix>:<id>".
//
// Identifiers are not escaped. A key is split on its first ':' so an id that
// itself contains ':' round-trips, provided the prefix does not contain ':'
// (ValidatePrefix enforces that).
package keys

import (
	"errors"
	"strings"
)

const Sep = ":"

var (
	ErrEmptyPrefix  = errors.New("keys: empty prefix")
	ErrPrefixHasSep = errors.New("keys: prefix contains ':'")
	ErrMalformedKey = errors.New("keys: key has no ':' separator")
)

// Build returns "prefix:id".
func Build(prefix, id string) string {
	return prefix + Sep + id
}

// Split returns the prefix and id of key, splitting on the first ':'.
func Split(key string) (prefix, id string, err error) {
	i := strings.Index(key, Sep)
	if i < 0 {
		return "", "", ErrMalformedKey
	}
	return key[:i], key[i+1:], nil
}

// ExtractID returns everything after the first ':'.
func ExtractID(key string) (string, error) {
	_, id, err := Split(key)
	return id, err
}

// Prefix returns everything before the first ':'; the whole key if there is none.
func Prefix(key string) string {
	if i := strings.Index(key, Sep); i >= 0 {
		return key[:i]
	}
	return key
}

// ValidatePrefix reports whether prefix can namespace keys unambiguously.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return ErrEmptyPrefix
	}
	if strings.Contains(prefix, Sep) {
		return ErrPrefixHasSep
	}
	return nil
}

// BuildMany builds keys for ids, preserving order.
func BuildMany(prefix string, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = Build(prefix, id)
	}
	return out
}
