// Package hints supplies research suggestions for a failing category.
//
// The provider always returns both official and community hints. Deciding
// which of them to show for a phase is left to the response composer.
package hints

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vinayprograms/recoverkit/classify"
)

// Hints holds research suggestions split by source.
type Hints struct {
	Official  []string
	Community []string
}

// Empty reports whether there is nothing to show.
func (h Hints) Empty() bool {
	return len(h.Official) == 0 && len(h.Community) == 0
}

type source struct {
	official  []string
	community []string
}

var sources = map[classify.Category]source{
	classify.NPMInstall: {
		official: []string{
			"npm CLI docs: https://docs.npmjs.com/cli/commands/npm-install",
			"npm error codes: https://docs.npmjs.com/cli/using-npm/config",
		},
		community: []string{
			"Stack Overflow [npm] tag, search the exact npm error code",
			"GitHub issues of the package that fails to install",
		},
	},
	classify.TypeScriptError: {
		official: []string{
			"TypeScript handbook: https://www.typescriptlang.org/docs/handbook/",
			"tsconfig reference: https://www.typescriptlang.org/tsconfig",
		},
		community: []string{
			"Stack Overflow [typescript] tag, search the TS error number",
			"typescript-eslint and DefinitelyTyped issue trackers",
		},
	},
	classify.TestFailure: {
		official: []string{
			"Test runner docs (Jest: https://jestjs.io/docs/, Vitest: https://vitest.dev/guide/)",
			"Assertion API reference for the matcher that failed",
		},
		community: []string{
			"Stack Overflow [jest] / [vitest] tags with the failing matcher name",
			"GitHub discussions of the test runner for flaky or timing failures",
		},
	},
	classify.BuildFailure: {
		official: []string{
			"Bundler docs (Vite: https://vite.dev/guide/, webpack: https://webpack.js.org/concepts/)",
			"Framework build configuration reference",
		},
		community: []string{
			"Stack Overflow, search the first build error line verbatim",
			"Bundler GitHub issues filtered by the plugin named in the error",
		},
	},
	classify.FileNotFound: {
		official: []string{
			"Node.js path and fs docs: https://nodejs.org/api/fs.html",
			"Module resolution rules of the runtime or bundler in use",
		},
		community: []string{
			"Stack Overflow answers on ENOENT with relative paths and working directories",
		},
	},
	classify.GitConflict: {
		official: []string{
			"Git merge conflicts: https://git-scm.com/docs/git-merge#_how_conflicts_are_presented",
			"git-status and git-checkout --ours/--theirs reference",
		},
		community: []string{
			"Stack Overflow [git] [merge-conflict-resolution] tags",
		},
	},
	classify.DatabaseError: {
		official: []string{
			"Database engine error code reference (PostgreSQL SQLSTATE, SQLite result codes)",
			"ORM migration docs (Prisma: https://www.prisma.io/docs/orm/prisma-migrate)",
		},
		community: []string{
			"Stack Overflow tag for the database engine with the error code",
			"ORM GitHub issues for migration and connection errors",
		},
	},
	classify.APIError: {
		official: []string{
			"API reference of the remote service for the endpoint and status code",
			"HTTP status semantics: https://developer.mozilla.org/docs/Web/HTTP/Status",
		},
		community: []string{
			"Service status page and developer forum",
			"Stack Overflow, search the service name with the status code",
		},
	},
	classify.Unknown: {
		official: []string{
			"Documentation of the tool that produced the error",
		},
		community: []string{
			"Search the first error line verbatim on Stack Overflow and GitHub issues",
		},
	},
}

var (
	tsCodeRe     = regexp.MustCompile(`\bTS(\d{4,5})\b`)
	npmCodeRe    = regexp.MustCompile(`npm (?:ERR!|error) code ([A-Z0-9_]+)`)
	moduleRe     = regexp.MustCompile(`Cannot find module '([^']+)'`)
	sqlStateRe   = regexp.MustCompile(`(?i)SQLSTATE\[?([0-9A-Z]{5})`)
	sqliteCodeRe = regexp.MustCompile(`\b(SQLITE_[A-Z_]+)\b`)
	httpStatusRe = regexp.MustCompile(`(?i)status(?: code)?:? ([45]\d\d)\b`)
	prismaCodeRe = regexp.MustCompile(`\b(P[1-3]\d{3})\b`)
)

// Provider produces hints. The zero value is ready to use.
type Provider struct{}

// NewProvider returns a hint provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Hints returns research suggestions for the failure. From phase 2 on the
// lists are prefixed with queries built from identifiers found in text.
func (p *Provider) Hints(cat classify.Category, text string, phase int) Hints {
	src, ok := sources[cat]
	if !ok {
		src = sources[classify.Unknown]
	}

	h := Hints{
		Official:  append([]string(nil), src.official...),
		Community: append([]string(nil), src.community...),
	}
	if phase < 2 {
		return h
	}

	off, com := specific(cat, text)
	h.Official = append(off, h.Official...)
	h.Community = append(com, h.Community...)
	return h
}

func specific(cat classify.Category, text string) (official, community []string) {
	switch cat {
	case classify.TypeScriptError:
		for _, code := range uniqueSubmatches(tsCodeRe, text) {
			official = append(official, fmt.Sprintf("Look up TS%s in the TypeScript diagnostics list", code))
			community = append(community, fmt.Sprintf("Search \"TS%s\" with the type names from the message", code))
		}
	case classify.NPMInstall:
		for _, code := range uniqueSubmatches(npmCodeRe, text) {
			official = append(official, fmt.Sprintf("Look up npm error code %s in the npm CLI docs", code))
			community = append(community, fmt.Sprintf("Search \"npm ERR! code %s\"", code))
		}
		for _, mod := range uniqueSubmatches(moduleRe, text) {
			official = append(official, fmt.Sprintf("Check the install instructions of %s on npmjs.com", mod))
		}
	case classify.FileNotFound:
		for _, mod := range uniqueSubmatches(moduleRe, text) {
			official = append(official, fmt.Sprintf("Check how %s is resolved relative to the importing file", mod))
		}
	case classify.DatabaseError:
		for _, code := range uniqueSubmatches(sqlStateRe, text) {
			official = append(official, fmt.Sprintf("Look up SQLSTATE %s in the database error code table", code))
		}
		for _, code := range uniqueSubmatches(sqliteCodeRe, text) {
			official = append(official, fmt.Sprintf("Look up %s in the SQLite result code list", code))
		}
		for _, code := range uniqueSubmatches(prismaCodeRe, text) {
			official = append(official, fmt.Sprintf("Look up Prisma error %s in the Prisma error reference", code))
			community = append(community, fmt.Sprintf("Search \"prisma %s\" in Prisma GitHub discussions", code))
		}
	case classify.APIError:
		for _, code := range uniqueSubmatches(httpStatusRe, text) {
			official = append(official, fmt.Sprintf("Check what status %s means for this endpoint in the API reference", code))
		}
	}

	if len(community) == 0 {
		if line := firstLine(text); line != "" {
			community = append(community, fmt.Sprintf("Search the exact message: %q", line))
		}
	}
	return official, community
}

func uniqueSubmatches(re *regexp.Regexp, text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}

// maxQueryLength bounds a quoted search query in bytes.
const maxQueryLength = 120

// firstLine returns the first non-empty line, cut to a searchable length.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxQueryLength {
			n := maxQueryLength
			for n > 0 && !utf8.RuneStart(line[n]) {
				n--
			}
			line = line[:n]
		}
		return line
	}
	return ""
}
