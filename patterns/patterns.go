// Package patterns maps categorised error text to known recovery patterns.
//
// The library is a fixed, ordered list evaluated top to bottom. It is built
// once at package init and never mutated.
package patterns

import (
	"regexp"
	"sort"

	"github.com/vinayprograms/recoverkit/classify"
	"github.com/vinayprograms/recoverkit/state"
)

// Pattern is a known failure shape with a suggested fix.
type Pattern struct {
	Name     string
	Category classify.Category
	Match    *regexp.Regexp
	Severity Severity
	Fix      string
}

// Matches reports whether the pattern applies to text.
func (p Pattern) Matches(text string) bool {
	return p.Match != nil && p.Match.MatchString(text)
}

// UniversalFix is the suggestion of last resort.
const UniversalFix = "Read the full error output carefully, reproduce the failure with the smallest possible command, and change one thing at a time."

// Library is an immutable ordered pattern set plus per-category generic fixes.
type Library struct {
	patterns []Pattern
	generic  map[classify.Category]string
}

// NewLibrary builds a library. The slices and map are copied.
func NewLibrary(patterns []Pattern, generic map[classify.Category]string) *Library {
	l := &Library{
		patterns: append([]Pattern(nil), patterns...),
		generic:  make(map[classify.Category]string, len(generic)),
	}
	for k, v := range generic {
		l.generic[k] = v
	}
	return l
}

// Patterns returns a copy of the library contents.
func (l *Library) Patterns() []Pattern {
	return append([]Pattern(nil), l.patterns...)
}

// GenericFix returns the category-level suggestion, or the universal one.
func (l *Library) GenericFix(cat classify.Category) string {
	if fix, ok := l.generic[cat]; ok {
		return fix
	}
	return UniversalFix
}

// FindMatchingPattern returns the first pattern of cat matching text. When
// none matches, the generic unknown patterns are scanned. Nil means no match.
func (l *Library) FindMatchingPattern(cat classify.Category, text string) *Pattern {
	if p := l.first(cat, text); p != nil {
		return p
	}
	if cat != classify.Unknown {
		return l.first(classify.Unknown, text)
	}
	return nil
}

func (l *Library) first(cat classify.Category, text string) *Pattern {
	for i := range l.patterns {
		if l.patterns[i].Category == cat && l.patterns[i].Matches(text) {
			p := l.patterns[i]
			return &p
		}
	}
	return nil
}

// FindAllMatchingPatterns returns every pattern of cat matching text, in
// library order, followed by matching unknown patterns.
func (l *Library) FindAllMatchingPatterns(cat classify.Category, text string) []Pattern {
	var out []Pattern
	for _, p := range l.patterns {
		if p.Category == cat && p.Matches(text) {
			out = append(out, p)
		}
	}
	if cat == classify.Unknown {
		return out
	}
	for _, p := range l.patterns {
		if p.Category == classify.Unknown && p.Matches(text) {
			out = append(out, p)
		}
	}
	return out
}

// HighestSeverity returns the highest severity in ps, or SeverityInfo when
// ps is empty.
func HighestSeverity(ps []Pattern) Severity {
	top := SeverityInfo
	for _, p := range ps {
		if p.Severity > top {
			top = p.Severity
		}
	}
	return top
}

// Suggestion is the fix offered for one invocation.
type Suggestion struct {
	Fix string

	// Pattern is the pattern the fix came from, nil for generic fixes.
	Pattern *Pattern
}

// SuggestedFix picks a fix for the failure. Matching patterns are tried by
// severity, highest first, then the category generic fix, then the universal
// one, skipping any fix already logged as failed in st. When every candidate
// has failed the returned Suggestion has an empty Fix. st may be nil.
func (l *Library) SuggestedFix(cat classify.Category, text string, st *state.ErrorState) Suggestion {
	matches := l.FindAllMatchingPatterns(cat, text)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Severity > matches[j].Severity
	})

	for i := range matches {
		if !st.HasFailed(matches[i].Fix) {
			p := matches[i]
			return Suggestion{Fix: p.Fix, Pattern: &p}
		}
	}
	if fix := l.GenericFix(cat); !st.HasFailed(fix) {
		return Suggestion{Fix: fix}
	}
	if !st.HasFailed(UniversalFix) {
		return Suggestion{Fix: UniversalFix}
	}
	return Suggestion{}
}

var defaultLibrary = NewLibrary(builtinPatterns, builtinGeneric)

// Default returns the built-in library.
func Default() *Library {
	return defaultLibrary
}

// FindMatchingPattern uses the built-in library.
func FindMatchingPattern(cat classify.Category, text string) *Pattern {
	return defaultLibrary.FindMatchingPattern(cat, text)
}

// FindAllMatchingPatterns uses the built-in library.
func FindAllMatchingPatterns(cat classify.Category, text string) []Pattern {
	return defaultLibrary.FindAllMatchingPatterns(cat, text)
}

// SuggestedFix uses the built-in library.
func SuggestedFix(cat classify.Category, text string, st *state.ErrorState) Suggestion {
	return defaultLibrary.SuggestedFix(cat, text, st)
}
