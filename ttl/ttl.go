// Package ttl decides which expiry to apply when a value is written.
package ttl

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Policy resolves the expiry for a key prefix. ok=false means "no expiry";
// what that means in practice is left to the backend.
type Policy interface {
	TTL(prefix string) (d time.Duration, ok bool)
}

// Resolver maps a prefix to a duration. It must be pure and total: every
// prefix, including unknown ones, gets a duration.
type Resolver interface {
	DurationFor(prefix string) time.Duration
}

// Fixed applies the same duration to every prefix. Non-positive means no expiry.
type Fixed time.Duration

func (f Fixed) TTL(string) (time.Duration, bool) {
	if f <= 0 {
		return 0, false
	}
	return time.Duration(f), true
}

func (f Fixed) String() string { return "fixed(" + time.Duration(f).String() + ")" }

// Never returns a policy that never sets an expiry.
func Never() Policy { return Fixed(0) }

// PerType evaluates r at write time.
func PerType(r Resolver) Policy { return perType{r: r} }

type perType struct{ r Resolver }

func (p perType) TTL(prefix string) (time.Duration, bool) {
	d := p.r.DurationFor(prefix)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

func (p perType) String() string {
	if s, ok := p.r.(fmt.Stringer); ok {
		return "per-type(" + s.String() + ")"
	}
	return "per-type"
}

// Func adapts a plain function to a Resolver. The function must handle any prefix.
type Func func(prefix string) time.Duration

func (f Func) DurationFor(prefix string) time.Duration { return f(prefix) }

// Table is an explicit prefix -> duration mapping with a required default arm.
// The zero Default means unknown prefixes never expire.
type Table struct {
	Default  time.Duration
	ByPrefix map[string]time.Duration
}

func (t Table) DurationFor(prefix string) time.Duration {
	if d, ok := t.ByPrefix[prefix]; ok {
		return d
	}
	return t.Default
}

func (t Table) String() string {
	names := make([]string, 0, len(t.ByPrefix))
	for k := range t.ByPrefix {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, k := range names {
		fmt.Fprintf(&b, "%s=%s,", k, t.ByPrefix[k])
	}
	fmt.Fprintf(&b, "*=%s", t.Default)
	return b.String()
}
