package patterns

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayprograms/recoverkit/classify"
	"github.com/vinayprograms/recoverkit/state"
)

func TestSeverity_Order(t *testing.T) {
	assert.True(t, SeverityCritical > SeverityError)
	assert.True(t, SeverityError > SeverityWarning)
	assert.True(t, SeverityWarning > SeverityInfo)
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "unknown", Severity(42).String())
	assert.Equal(t, SeverityWarning, ParseSeverity(" Warning "))
	assert.Equal(t, SeverityInfo, ParseSeverity("loud"))
}

func TestLibrary_EveryCategoryHasGenericFix(t *testing.T) {
	for _, cat := range classify.All {
		assert.NotEqual(t, UniversalFix, Default().GenericFix(cat), cat)
	}
	assert.Equal(t, UniversalFix, Default().GenericFix(classify.Category("bogus")))
}

func TestLibrary_PatternsAreWellFormed(t *testing.T) {
	names := map[string]bool{}
	for _, p := range Default().Patterns() {
		require.NotNil(t, p.Match, p.Name)
		assert.True(t, p.Category.Valid(), p.Name)
		assert.NotEmpty(t, p.Fix, p.Name)
		assert.False(t, names[p.Name], "duplicate pattern name %s", p.Name)
		names[p.Name] = true

		lower := strings.ToLower(p.Fix)
		assert.NotContains(t, lower, "official", p.Name)
		assert.NotContains(t, lower, "community", p.Name)
	}
}

func TestFindMatchingPattern(t *testing.T) {
	tests := []struct {
		cat  classify.Category
		text string
		want string
	}{
		{classify.NPMInstall, "npm ERR! code ERESOLVE", "npm-peer-dependency-conflict"},
		{classify.TypeScriptError, "src/a.ts(3,1): error TS2322: Type 'string' is not assignable to type 'number'.", "ts-type-not-assignable"},
		{classify.FileNotFound, "ENOENT: no such file or directory, open 'x.json'", "file-missing-path"},
		{classify.GitConflict, "CONFLICT (content): Merge conflict in a.go", "git-merge-conflict"},
		{classify.DatabaseError, `relation "users" does not exist`, "db-missing-relation"},
		{classify.APIError, "request failed with status 429 Too Many Requests", "api-rate-limited"},
		{classify.BuildFailure, "make: *** [all] Error 2", "build-make"},
	}

	for _, tt := range tests {
		p := FindMatchingPattern(tt.cat, tt.text)
		require.NotNil(t, p, tt.text)
		assert.Equal(t, tt.want, p.Name)
	}
}

func TestFindMatchingPattern_FallsBackToUnknown(t *testing.T) {
	p := FindMatchingPattern(classify.BuildFailure, "sh: vite: command not found")
	require.NotNil(t, p)
	assert.Equal(t, classify.Unknown, p.Category)
	assert.Equal(t, "generic-command-not-found", p.Name)
}

func TestFindMatchingPattern_NoMatch(t *testing.T) {
	assert.Nil(t, FindMatchingPattern(classify.Unknown, "something odd happened"))
	assert.Nil(t, FindMatchingPattern(classify.GitConflict, "everything is fine"))
}

func TestFindAllMatchingPatterns(t *testing.T) {
	text := "npm ERR! code EACCES permission denied, mkdir node_modules"
	all := FindAllMatchingPatterns(classify.NPMInstall, text)
	require.NotEmpty(t, all)

	var names []string
	for _, p := range all {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "npm-permission-denied")
	assert.Contains(t, names, "generic-permission-denied")
	assert.Equal(t, SeverityCritical, HighestSeverity(all))
}

func TestHighestSeverity_Empty(t *testing.T) {
	assert.Equal(t, SeverityInfo, HighestSeverity(nil))
}

func TestSuggestedFix_PrefersHighestSeverity(t *testing.T) {
	text := "npm ERR! code EACCES permission denied, mkdir node_modules"
	s := SuggestedFix(classify.NPMInstall, text, nil)
	require.NotNil(t, s.Pattern)
	assert.Equal(t, "npm-permission-denied", s.Pattern.Name)
}

func TestSuggestedFix_SkipsFailedStrategies(t *testing.T) {
	text := "npm ERR! code EACCES permission denied, mkdir node_modules"
	all := FindAllMatchingPatterns(classify.NPMInstall, text)
	require.Len(t, all, 2)

	st := state.NewErrorState("err_x", classify.NPMInstall, "Bash", time.Now())
	st.PendingFix = SuggestedFix(classify.NPMInstall, text, st).Fix
	st.SettlePending(false, time.Now())

	second := SuggestedFix(classify.NPMInstall, text, st)
	require.NotNil(t, second.Pattern)
	assert.Equal(t, "generic-permission-denied", second.Pattern.Name)

	st.PendingFix = second.Fix
	st.SettlePending(false, time.Now())

	third := SuggestedFix(classify.NPMInstall, text, st)
	assert.Nil(t, third.Pattern)
	assert.Equal(t, Default().GenericFix(classify.NPMInstall), third.Fix)

	st.PendingFix = third.Fix
	st.SettlePending(false, time.Now())

	last := SuggestedFix(classify.NPMInstall, text, st)
	assert.Equal(t, UniversalFix, last.Fix)

	st.PendingFix = last.Fix
	st.SettlePending(false, time.Now())

	none := SuggestedFix(classify.NPMInstall, text, st)
	assert.Empty(t, none.Fix, "every candidate has failed")
	assert.Nil(t, none.Pattern)
}

func TestSuggestedFix_SucceededStrategyIsNotSkipped(t *testing.T) {
	text := "CONFLICT (content): Merge conflict in main.go"
	first := SuggestedFix(classify.GitConflict, text, nil)

	st := state.NewErrorState("err_y", classify.GitConflict, "Bash", time.Now())
	st.PendingFix = first.Fix
	st.SettlePending(true, time.Now())

	assert.Equal(t, first.Fix, SuggestedFix(classify.GitConflict, text, st).Fix)
}

func TestSuggestedFix_UnknownCategoryNoMatch(t *testing.T) {
	s := SuggestedFix(classify.Unknown, "weird", nil)
	assert.Nil(t, s.Pattern)
	assert.Equal(t, Default().GenericFix(classify.Unknown), s.Fix)
}

func TestNewLibrary_Copies(t *testing.T) {
	src := []Pattern{{Name: "a", Category: classify.Unknown}}
	gen := map[classify.Category]string{classify.Unknown: "x"}
	l := NewLibrary(src, gen)

	src[0].Name = "mutated"
	gen[classify.Unknown] = "mutated"

	assert.Equal(t, "a", l.Patterns()[0].Name)
	assert.Equal(t, "x", l.GenericFix(classify.Unknown))
}
