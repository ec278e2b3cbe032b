// Package version classifies the magnitude of the difference between two
// release versions and matches it against a strategy of bit flags.
// This is part of the Functional Core - all functions are pure with no I/O.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidStrategy is returned when a strategy holds unknown flags.
var ErrInvalidStrategy = errors.New("invalid strategy")

// =============================================================================
// Category
// =============================================================================

// Category is the most significant version component that differs between
// two versions. Every category is a distinct bit flag.
type Category uint8

const (
	CategoryNone  Category = 1 << iota // All components equal
	CategoryPatch                      // Patch differs
	CategoryMinor                      // Minor differs
	CategoryMajor                      // Major differs
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryPatch:
		return "patch"
	case CategoryMinor:
		return "minor"
	case CategoryMajor:
		return "major"
	default:
		return "unknown(" + strconv.Itoa(int(c)) + ")"
	}
}

// =============================================================================
// Strategy
// =============================================================================

// Strategy selects the categories that trigger conditional behavior.
// It is a bitwise OR of the Match* flags.
type Strategy uint8

const (
	MatchNoDifference    = Strategy(CategoryNone)
	MatchPatchDifference = Strategy(CategoryPatch)
	MatchMinorDifference = Strategy(CategoryMinor)
	MatchMajorDifference = Strategy(CategoryMajor)

	MatchAllDifferences = MatchNoDifference | MatchPatchDifference | MatchMinorDifference | MatchMajorDifference
)

var strategyNames = map[string]Strategy{
	"none":  MatchNoDifference,
	"patch": MatchPatchDifference,
	"minor": MatchMinorDifference,
	"major": MatchMajorDifference,
	"all":   MatchAllDifferences,
}

// Validate checks that the strategy is a recognized flag or a combination of
// recognized flags. The returned error names the offending value.
func (s Strategy) Validate() error {
	if s == 0 || s&^MatchAllDifferences != 0 {
		return fmt.Errorf("the strategy type \"%d\" is invalid: %w", uint8(s), ErrInvalidStrategy)
	}
	return nil
}

// Matches reports whether the category's flag is set in the strategy.
func (s Strategy) Matches(c Category) bool {
	return s&Strategy(c) != 0
}

func (s Strategy) String() string {
	if s == MatchAllDifferences {
		return "all"
	}
	var parts []string
	for _, c := range []Category{CategoryMajor, CategoryMinor, CategoryPatch, CategoryNone} {
		if s.Matches(c) {
			parts = append(parts, c.String())
		}
	}
	if rest := s &^ MatchAllDifferences; rest != 0 {
		parts = append(parts, strconv.Itoa(int(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseStrategy parses a strategy such as "major" or "major|minor".
// Numeric values are accepted as raw flag sets.
func ParseStrategy(value string) (Strategy, error) {
	value = strings.TrimSpace(value)
	if n, err := strconv.ParseUint(value, 10, 8); err == nil {
		s := Strategy(n)
		return s, s.Validate()
	}

	var s Strategy
	for _, part := range strings.Split(value, "|") {
		flag, ok := strategyNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, fmt.Errorf("the strategy type \"%s\" is invalid: %w", value, ErrInvalidStrategy)
		}
		s |= flag
	}
	return s, nil
}

// =============================================================================
// Categorize
// =============================================================================

// Categorize returns the most significant component that differs between a
// and b. Pre-release and build metadata are ignored, so "1.0.0-rc.1" and
// "1.0.0" categorize as CategoryNone. The result is symmetric in a and b.
func Categorize(a, b string) Category {
	va, vb := parse(a), parse(b)
	switch {
	case va[0] != vb[0]:
		return CategoryMajor
	case va[1] != vb[1]:
		return CategoryMinor
	case va[2] != vb[2]:
		return CategoryPatch
	default:
		return CategoryNone
	}
}

// parse returns the (major, minor, patch) components of a version as
// decimal strings without leading zeros. Components are never converted to
// integers, so arbitrarily long numbers compare exactly.
func parse(v string) [3]string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}

	// Canonical fills missing components and drops build metadata
	if canonical := semver.Canonical(v); canonical != "" {
		core := strings.TrimSuffix(canonical, semver.Prerelease(canonical))
		return components(strings.TrimPrefix(core, "v"))
	}
	return lenient(strings.TrimPrefix(v, "v"))
}

// lenient handles strings semver rejects, such as "01.2" or "1.2.3.4".
// Non-numeric components count as zero.
func lenient(v string) [3]string {
	if i := strings.IndexAny(v, "+-"); i >= 0 {
		v = v[:i]
	}
	return components(v)
}

func components(core string) [3]string {
	out := [3]string{"0", "0", "0"}
	for i, part := range strings.SplitN(core, ".", 4) {
		if i > 2 {
			break
		}
		if n, ok := number(part); ok {
			out[i] = n
		}
	}
	return out
}

// number normalizes a decimal component by stripping leading zeros.
func number(part string) (string, bool) {
	if part == "" {
		return "", false
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	if n := strings.TrimLeft(part, "0"); n != "" {
		return n, true
	}
	return "0", true
}
