// Package classify turns raw tool error text into a category and a stable
// signature. Both functions are pure.
package classify

import (
	"regexp"
	"strings"
)

// Category is the closed set of error categories.
type Category string

const (
	NPMInstall      Category = "npm_install"
	TypeScriptError Category = "typescript_error"
	TestFailure     Category = "test_failure"
	BuildFailure    Category = "build_failure"
	FileNotFound    Category = "file_not_found"
	GitConflict     Category = "git_conflict"
	DatabaseError   Category = "database_error"
	APIError        Category = "api_error"
	Unknown         Category = "unknown"
)

// All lists every category, unknown last.
var All = []Category{
	NPMInstall,
	TypeScriptError,
	TestFailure,
	BuildFailure,
	FileNotFound,
	GitConflict,
	DatabaseError,
	APIError,
	Unknown,
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range All {
		if c == known {
			return true
		}
	}
	return false
}

// Parse converts a name into a Category. Unknown names yield Unknown and false.
func Parse(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, true
	}
	return Unknown, false
}

type rule struct {
	category Category
	pattern  *regexp.Regexp
}

// rules are evaluated top to bottom; the first match wins.
// Order matters: a tsc failure inside a build log is a typescript_error,
// and a failing test that mentions ENOENT is still a test_failure.
var rules = []rule{
	{GitConflict, regexp.MustCompile(`(?i)(merge conflict|CONFLICT \(|<<<<<<< |automatic merge failed|fix conflicts and then commit|unmerged paths)`)},
	{TypeScriptError, regexp.MustCompile(`(error TS\d{4,5}|\bTS\d{4,5}:|is not assignable to type|Property '[^']+' does not exist on type|Cannot find name '|tsc(\.cmd)? exited)`)},
	{TestFailure, regexp.MustCompile(`(?i)(\bFAIL\b\s+\S|--- FAIL:|tests?:\s+\d+ failed|\d+ (tests? )?failing|AssertionError|expect\(.*\)\.(to|not)|assertion failed|test suite failed)`)},
	{NPMInstall, regexp.MustCompile(`(?i)(npm ERR!|npm error|ERESOLVE|could not resolve dependency|peer dep|pnpm ERR|ERR_PNPM_|yarn error|EINTEGRITY|ETARGET|no matching version found|Cannot find module '[^./][^']*')`)},
	{DatabaseError, regexp.MustCompile(`(?i)(prisma|SQLITE_\w+|SQLSTATE|relation "[^"]+" does not exist|duplicate key value|database .* does not exist|connection to server .* failed|ECONNREFUSED[^\n]*:(5432|3306|27017|6379)\b|migration failed|deadlock detected)`)},
	{FileNotFound, regexp.MustCompile(`(?i)(ENOENT|no such file or directory|file not found|cannot find the (file|path)|does not exist:|Cannot find module '\.{1,2}/)`)},
	{APIError, regexp.MustCompile(`(?i)(status( code)?:? (4\d\d|5\d\d)\b|\bHTTP/\d(\.\d)? (4\d\d|5\d\d)\b|fetch failed|ECONNREFUSED|ETIMEDOUT|ECONNRESET|ENOTFOUND|\b(401 )?unauthorized\b|rate limit|too many requests|bad gateway|service unavailable)`)},
	{BuildFailure, regexp.MustCompile(`(?i)(build failed|compilation failed|failed to compile|error during build|webpack .*error|rollup failed|esbuild.*error|vite.*error|\bmake: \*\*\*|go build .* failed|cargo build .* error)`)},
}

// Categorize classifies raw error text. Text matching no rule is Unknown.
func Categorize(text string) Category {
	if strings.TrimSpace(text) == "" {
		return Unknown
	}
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.category
		}
	}
	return Unknown
}
