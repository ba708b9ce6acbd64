package description_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xela07ax/clickup-gmud/internal/description"
)

func TestTaskName(t *testing.T) {
	assert.Equal(t, "[GMUD] br4bet - prd (por rafael.silva)", description.TaskName("br4bet", "prd", "rafael.silva"))
}

func TestBuild_AllOptionalAbsent(t *testing.T) {
	text := description.Build(description.Input{
		Environment: "prod",
		House:       "acme",
		Actor:       "alice",
		PipelineURL: "",
	})

	assert.NotContains(t, text, "Commit")
	assert.NotContains(t, text, "Pull Request")
	assert.NotContains(t, text, "Pipeline:")
	assert.Contains(t, text, "- Casa: acme")
	assert.Contains(t, text, "- Ambiente: prod")
	assert.Contains(t, text, "- Usuário: alice")
	assert.True(t, strings.HasPrefix(text, "🚀 **Pipeline iniciada por alice**"))
	assert.True(t, strings.HasSuffix(text, "⏳ **Aguardando aprovação...**"))
}

func TestBuild_AllPresent(t *testing.T) {
	text := description.Build(description.Input{
		Environment: "prd",
		House:       "acme",
		Actor:       "alice",
		PipelineURL: "https://github.com/org/repo/actions/runs/1",
		Commit: &description.CommitInfo{
			SHA:     "0123456789abcdef",
			Message: "fix: payment rounding\n\nlong body",
			Author:  "Bob",
			URL:     "https://github.com/org/repo/commit/0123456789abcdef",
		},
		PR: &description.PRInfo{
			Number:  42,
			Title:   "Fix rounding",
			Author:  "bob",
			HeadRef: "fix/rounding",
			BaseRef: "main",
			URL:     "https://github.com/org/repo/pull/42",
		},
	})

	assert.Contains(t, text, "- Pipeline: https://github.com/org/repo/actions/runs/1")
	assert.Contains(t, text, "**Commit:**")
	assert.Contains(t, text, "- SHA: `0123456`")
	assert.Contains(t, text, "- Mensagem: fix: payment rounding\n")
	assert.NotContains(t, text, "long body")
	assert.Contains(t, text, "**Pull Request:**")
	assert.Contains(t, text, "- #42: Fix rounding")
	assert.Contains(t, text, "- Branch: fix/rounding → main")

	// Порядок секций: детали -> коммит -> PR -> футер
	assert.Less(t, strings.Index(text, "Detalhes"), strings.Index(text, "Commit"))
	assert.Less(t, strings.Index(text, "Commit"), strings.Index(text, "Pull Request"))
	assert.Less(t, strings.Index(text, "Pull Request"), strings.Index(text, "Aguardando"))
}

func TestBuild_Permutations(t *testing.T) {
	commit := &description.CommitInfo{SHA: "abc"}
	pr := &description.PRInfo{Number: 7}

	cases := []struct {
		name       string
		commit     *description.CommitInfo
		pr         *description.PRInfo
		wantCommit bool
		wantPR     bool
	}{
		{"none", nil, nil, false, false},
		{"commit only", commit, nil, true, false},
		{"pr only", nil, pr, false, true},
		{"both", commit, pr, true, true},
		{"empty commit struct", &description.CommitInfo{}, nil, false, false},
		{"pr without number", nil, &description.PRInfo{Title: "x"}, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := description.Build(description.Input{
				Environment: "prd", House: "acme", Actor: "alice",
				Commit: tc.commit, PR: tc.pr,
			})
			assert.Equal(t, tc.wantCommit, strings.Contains(text, "Commit"))
			assert.Equal(t, tc.wantPR, strings.Contains(text, "Pull Request"))
		})
	}
}

func TestBuild_ShortFieldsKeptAsIs(t *testing.T) {
	text := description.Build(description.Input{
		House: "acme", Environment: "prd", Actor: "alice",
		Commit: &description.CommitInfo{SHA: "abc12"},
		PR:     &description.PRInfo{Number: 3},
	})

	assert.Contains(t, text, "- SHA: `abc12`")
	assert.Contains(t, text, "- #3\n")
	assert.NotContains(t, text, "Branch:")
}
