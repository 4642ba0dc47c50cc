package subject

import (
	"regexp"
	"strings"
	"sync"

	"fuelstreams/internal/errs"
)

// ValidatePattern implements the wildcard validator of spec §4.1:
//  1. empty -> Empty
//  2. '>' present -> must not mix with '*', must be the entire final segment
//  3. '*' present (no '>') -> every segment containing '*' must equal "*"
//  4. otherwise valid
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return errs.New(errs.KindCodec, "empty", "pattern is empty")
	}
	segments := strings.Split(pattern, ".")
	hasGT := strings.Contains(pattern, ">")
	hasStar := strings.Contains(pattern, "*")

	if hasGT {
		if hasStar {
			return errs.New(errs.KindCodec, "mixed_wildcards", "pattern mixes '*' and '>'")
		}
		last := segments[len(segments)-1]
		if last != ">" {
			return errs.New(errs.KindCodec, "greater_than_not_at_end", "'>' must be the entire final segment")
		}
		for _, seg := range segments[:len(segments)-1] {
			if strings.Contains(seg, ">") {
				return errs.New(errs.KindCodec, "greater_than_not_at_end", "'>' must appear only once, at the end")
			}
		}
		return nil
	}

	if hasStar {
		for _, seg := range segments {
			if strings.Contains(seg, "*") && seg != "*" {
				return errs.New(errs.KindCodec, "invalid_asterisk_usage", "segment containing '*' must be exactly \"*\"")
			}
		}
	}
	return nil
}

var (
	patternRegexCache   = map[string]*regexp.Regexp{}
	patternRegexCacheMu sync.Mutex
)

// compilePattern turns a validated pattern into an anchored regex: '*'
// matches exactly one non-dot segment, a trailing '>' matches one or more
// trailing segments.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternRegexCacheMu.Lock()
	if re, ok := patternRegexCache[pattern]; ok {
		patternRegexCacheMu.Unlock()
		return re, nil
	}
	patternRegexCacheMu.Unlock()

	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	segments := strings.Split(pattern, ".")
	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		switch {
		case seg == ">" && i == len(segments)-1:
			parts = append(parts, `[^.]+(?:\.[^.]+)*`)
		case seg == "*":
			parts = append(parts, `[^.]+`)
		default:
			parts = append(parts, regexp.QuoteMeta(seg))
		}
	}
	re, err := regexp.Compile("^" + strings.Join(parts, `\.`) + "$")
	if err != nil {
		return nil, errs.Wrap(errs.KindCodec, errs.ReasonPatternInvalid, err, "compile pattern")
	}

	patternRegexCacheMu.Lock()
	patternRegexCache[pattern] = re
	patternRegexCacheMu.Unlock()
	return re, nil
}

// Matches reports whether subject satisfies pattern, per spec §4.1's
// matcher contract (P3: must agree with the compiled SQL predicate).
func Matches(subj, pattern string) (bool, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(subj), nil
}
