package hints

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/vinayprograms/recoverkit/classify"
)

func TestHints_EveryCategoryHasBothLists(t *testing.T) {
	p := NewProvider()
	for _, cat := range classify.All {
		h := p.Hints(cat, "", 3)
		assert.NotEmpty(t, h.Official, cat)
		assert.NotEmpty(t, h.Community, cat)
		assert.False(t, h.Empty())
	}
}

func TestHints_PhaseOneIsNotGated(t *testing.T) {
	h := NewProvider().Hints(classify.TypeScriptError, "error TS2322: nope", 1)
	assert.NotEmpty(t, h.Official)
	assert.NotEmpty(t, h.Community)
	for _, s := range h.Official {
		assert.NotContains(t, s, "TS2322", "phase 1 hints are generic")
	}
}

func TestHints_SpecificFromPhaseTwo(t *testing.T) {
	text := "src/a.ts(1,1): error TS2322: x\nsrc/b.ts(2,2): error TS2322: y\nerror TS2339: z"
	h := NewProvider().Hints(classify.TypeScriptError, text, 2)

	assert.Contains(t, h.Official[0], "TS2322")
	assert.Contains(t, h.Official[1], "TS2339")
	assert.Equal(t, 1, countContaining(h.Official, "TS2322"), "codes are deduplicated")
	assert.Contains(t, h.Community[0], "TS2322")
}

func TestHints_NPMCodeAndModule(t *testing.T) {
	text := "npm ERR! code E404\nnpm ERR! Cannot find module 'left-pad'"
	h := NewProvider().Hints(classify.NPMInstall, text, 3)
	assert.Equal(t, 1, countContaining(h.Official, "E404"))
	assert.Equal(t, 1, countContaining(h.Official, "left-pad"))
	assert.Equal(t, 1, countContaining(h.Community, "npm ERR! code E404"))
}

func TestHints_DatabaseCodes(t *testing.T) {
	text := "SQLSTATE[42P01]: relation missing\nSQLITE_BUSY\nError: P3009 migrate found failed migrations"
	h := NewProvider().Hints(classify.DatabaseError, text, 2)
	assert.Equal(t, 1, countContaining(h.Official, "42P01"))
	assert.Equal(t, 1, countContaining(h.Official, "SQLITE_BUSY"))
	assert.Equal(t, 1, countContaining(h.Official, "P3009"))
}

func TestHints_CommunityFallsBackToFirstLine(t *testing.T) {
	h := NewProvider().Hints(classify.Unknown, "\n\n  segmentation fault (core dumped)\nmore", 3)
	assert.Contains(t, h.Community[0], "segmentation fault (core dumped)")
}

func TestHints_UnknownCategoryUsesGenericSource(t *testing.T) {
	h := NewProvider().Hints(classify.Category("bogus"), "x", 1)
	assert.Equal(t, sources[classify.Unknown].official, h.Official)
}

func TestHints_DoesNotAliasSources(t *testing.T) {
	h := NewProvider().Hints(classify.GitConflict, "", 1)
	h.Official[0] = "mutated"
	assert.NotEqual(t, "mutated", sources[classify.GitConflict].official[0])
}

func TestFirstLine_Truncates(t *testing.T) {
	assert.Len(t, firstLine(strings.Repeat("a", 500)), 120)
	assert.Equal(t, "", firstLine("  \n\t\n"))
}

func TestFirstLine_CutsOnRuneBoundary(t *testing.T) {
	got := firstLine(strings.Repeat("é", 100) + "x")
	assert.True(t, utf8.ValidString(got), "%q", got)
	assert.LessOrEqual(t, len(got), maxQueryLength)

	got = firstLine("a" + strings.Repeat("日", 100))
	assert.True(t, utf8.ValidString(got), "%q", got)
	assert.Equal(t, "a"+strings.Repeat("日", 39), got)
}

func countContaining(list []string, sub string) int {
	n := 0
	for _, s := range list {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}
