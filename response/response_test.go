package response

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayprograms/recoverkit/classify"
	"github.com/vinayprograms/recoverkit/hints"
	"github.com/vinayprograms/recoverkit/patterns"
	"github.com/vinayprograms/recoverkit/state"
)

func sampleHints() hints.Hints {
	return hints.Hints{
		Official:  []string{"read the handbook"},
		Community: []string{"search the forum"},
	}
}

func TestCompose_HintGating(t *testing.T) {
	tests := []struct {
		phase         int
		wantOfficial  bool
		wantCommunity bool
	}{
		{1, false, false},
		{2, true, false},
		{3, true, true},
	}

	for _, tt := range tests {
		out := Compose(Input{
			Phase:           tt.phase,
			AttemptsInPhase: 1,
			Limit:           2,
			Category:        classify.Unknown,
			Fix:             "do the thing",
			Hints:           sampleHints(),
		})
		assert.Equal(t, tt.wantOfficial, strings.Contains(out, OfficialHeader), "phase %d", tt.phase)
		assert.Equal(t, tt.wantCommunity, strings.Contains(out, CommunityHeader), "phase %d", tt.phase)
		assert.Equal(t, tt.wantOfficial, strings.Contains(out, "read the handbook"), "phase %d", tt.phase)
		assert.Equal(t, tt.wantCommunity, strings.Contains(out, "search the forum"), "phase %d", tt.phase)

		if tt.phase == 1 {
			lower := strings.ToLower(out)
			assert.NotContains(t, lower, "official")
			assert.NotContains(t, lower, "community")
		}
	}
}

func TestCompose_SectionOrder(t *testing.T) {
	pat := patterns.FindMatchingPattern(classify.NPMInstall, "npm ERR! code ERESOLVE")
	require.NotNil(t, pat)

	out := Compose(Input{
		Phase:           3,
		AttemptsInPhase: 2,
		Limit:           2,
		TotalAttempts:   6,
		Category:        classify.NPMInstall,
		Pattern:         pat,
		Fix:             pat.Fix,
		Hints:           sampleHints(),
		Failed:          []state.FixAttempt{{Phase: 2, Strategy: "reinstall"}},
		Exhausted:       true,
	})

	order := []string{
		"Phase 3/3: search community solutions",
		"Attempt 2/2 (0 remaining this phase)",
		"Matched pattern: npm-peer-dependency-conflict",
		"Suggested fix: ",
		OfficialHeader,
		CommunityHeader,
		PreviousHeader,
		TryDifferentLine,
		ExhaustedHeader,
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		require.GreaterOrEqual(t, idx, 0, "missing %q in:\n%s", marker, out)
		assert.Greater(t, idx, last, "%q out of order", marker)
		last = idx
	}
	assert.Contains(t, out, "6 attempts across 3 phases")
}

func TestCompose_OmitsEmptySections(t *testing.T) {
	out := Compose(Input{Phase: 3, AttemptsInPhase: 1, Limit: 1})
	assert.NotContains(t, out, "Suggested fix")
	assert.NotContains(t, out, OfficialHeader)
	assert.NotContains(t, out, CommunityHeader)
	assert.NotContains(t, out, PreviousHeader)
	assert.NotContains(t, out, ExhaustedHeader)
	assert.NotContains(t, out, "Detected category")
	assert.NotContains(t, out, "\n\n\n")
}

func TestCompose_CommunityOnlyAtPhaseThree(t *testing.T) {
	out := Compose(Input{Phase: 3, Hints: hints.Hints{Community: []string{"forum"}}})
	assert.NotContains(t, out, OfficialHeader)
	assert.Contains(t, out, CommunityHeader)
}

func TestCompose_AttemptCounter(t *testing.T) {
	out := Compose(Input{Phase: 1, AttemptsInPhase: 3, Limit: 3, Category: classify.TypeScriptError})
	assert.Contains(t, out, "Attempt 3/3 (0 remaining this phase)")
	assert.Contains(t, out, "Detected category: typescript_error")

	out = Compose(Input{Phase: 1, AttemptsInPhase: 1, Limit: 3})
	assert.Contains(t, out, "(2 remaining this phase)")
}

func TestCompose_PreviousCappedAtThree(t *testing.T) {
	now := time.Now()
	failed := []state.FixAttempt{
		{Phase: 1, Strategy: "first", Timestamp: now},
		{Phase: 1, Strategy: "second", Timestamp: now},
		{Phase: 2, Strategy: "third", Timestamp: now},
		{Phase: 2, Strategy: "fourth", Timestamp: now},
	}
	out := Compose(Input{Phase: 2, Failed: failed})
	assert.NotContains(t, out, "first")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "[phase 2] fourth")
	assert.Contains(t, out, TryDifferentLine)
}

func TestCompose_ClampsPhase(t *testing.T) {
	out := Compose(Input{Phase: 7})
	assert.True(t, strings.HasPrefix(out, "Phase 3/3"))
	out = Compose(Input{Phase: 0, Hints: sampleHints()})
	assert.True(t, strings.HasPrefix(out, "Phase 1/3"))
	assert.NotContains(t, out, OfficialHeader)
}

func TestDefault(t *testing.T) {
	assert.NotEmpty(t, Default())
}
