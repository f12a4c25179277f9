package cachekit

import (
	"fmt"
	"strings"
)

// Strategy selects how a single operation treats the cache.
type Strategy uint8

const (
	// Fresh reads the cache only. A miss is reported as absent and the
	// repository is never consulted.
	Fresh Strategy = iota + 1
	// Refresh reads the cache and falls back to the repository on a miss,
	// writing the result back.
	Refresh
	// Invalidate deletes the cached entry, then loads from the repository
	// and writes the result back.
	Invalidate
	// Bypass loads from the repository and writes the result back without
	// reading the cache.
	Bypass
)

func (s Strategy) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Refresh:
		return "refresh"
	case Invalidate:
		return "invalidate"
	case Bypass:
		return "bypass"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

func (s Strategy) valid() bool { return s >= Fresh && s <= Bypass }

// ParseStrategy accepts the names returned by String, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fresh":
		return Fresh, nil
	case "refresh":
		return Refresh, nil
	case "invalidate":
		return Invalidate, nil
	case "bypass":
		return Bypass, nil
	}
	return 0, &Error{Kind: ErrConfig, Op: "parse strategy", Err: fmt.Errorf("unknown strategy %q", name)}
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("cachekit: cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
