package action_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/clickup-gmud/internal/action"
	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/gmud"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"INPUT_TOKEN":       "pk_123",
		"INPUT_LIST_ID":     "901",
		"INPUT_HOUSE_NAME":  "acme",
		"INPUT_ENVIRONMENT": "prd",
	}
}

func TestLoadInputs_Defaults(t *testing.T) {
	in, err := action.LoadInputs(lookupFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "System", in.Actor)
	assert.Equal(t, "EM ANÁLISE", in.StatusPending)
	assert.Equal(t, "APROVADAS", in.StatusApproved)
	assert.Equal(t, "NEGADAS", in.StatusRejected)
	assert.Equal(t, "COMPLETE", in.StatusComplete)
	assert.Equal(t, 30, in.PollIntervalSeconds)
	assert.Equal(t, 60, in.TimeoutMinutes)
	assert.True(t, in.CompleteOnSuccess)
	assert.True(t, in.IncludeCommitInfo)
	assert.True(t, in.IncludePRInfo)
	assert.True(t, in.SkipNonProduction)
}

func TestLoadInputs_Overrides(t *testing.T) {
	env := baseEnv()
	env["INPUT_ACTOR"] = "ana"
	env["INPUT_POLL_INTERVAL_SECONDS"] = "5"
	env["INPUT_TIMEOUT_MINUTES"] = "2"
	env["INPUT_COMPLETE_ON_SUCCESS"] = "false"
	env["INPUT_SKIP_NON_PRODUCTION"] = "false"
	env["INPUT_STATUS_APPROVED"] = "OK"

	in, err := action.LoadInputs(lookupFrom(env))
	require.NoError(t, err)

	assert.Equal(t, "ana", in.Actor)
	assert.Equal(t, 5, in.PollIntervalSeconds)
	assert.Equal(t, 2, in.TimeoutMinutes)
	assert.False(t, in.CompleteOnSuccess)
	assert.False(t, in.SkipNonProduction)
	assert.Equal(t, "OK", in.StatusApproved)
}

func TestLoadInputs_LegacyNames(t *testing.T) {
	env := map[string]string{
		"INPUT_CLICKUP_TOKEN": "pk_1",
		"INPUT_LIST_ID":       "901",
		"INPUT_CASA":          "acme",
		"INPUT_AMBIENTE":      "prod",
		"INPUT_USUARIO":       "joão",
	}

	in, err := action.LoadInputs(lookupFrom(env))
	require.NoError(t, err)

	assert.Equal(t, "pk_1", in.Token)
	assert.Equal(t, "acme", in.HouseName)
	assert.Equal(t, "prod", in.Environment)
	assert.Equal(t, "joão", in.Actor)
}

func TestLoadInputs_BlankActorFallsBackToDefault(t *testing.T) {
	env := baseEnv()
	env["INPUT_ACTOR"] = "  "

	in, err := action.LoadInputs(lookupFrom(env))
	require.NoError(t, err)
	assert.Equal(t, "System", in.Actor)
}

func TestLoadInputs_Missing(t *testing.T) {
	for _, key := range []string{"INPUT_TOKEN", "INPUT_LIST_ID", "INPUT_HOUSE_NAME", "INPUT_ENVIRONMENT"} {
		t.Run(key, func(t *testing.T) {
			env := baseEnv()
			delete(env, key)

			_, err := action.LoadInputs(lookupFrom(env))

			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err))
		})
	}
}

func TestLoadInputs_NonPositiveIntervals(t *testing.T) {
	env := baseEnv()
	env["INPUT_POLL_INTERVAL_SECONDS"] = "0"

	_, err := action.LoadInputs(lookupFrom(env))
	assert.True(t, domain.IsConfigError(err))
}

func TestInputs_Config(t *testing.T) {
	env := baseEnv()
	env["INPUT_POLL_INTERVAL_SECONDS"] = "10"
	env["INPUT_TIMEOUT_MINUTES"] = "3"
	env["INPUT_NOTIFICATION_WEBHOOK_URL"] = "https://chat.example.com/hook"
	in, err := action.LoadInputs(lookupFrom(env))
	require.NoError(t, err)

	cfg, err := in.Config("")
	require.NoError(t, err)

	assert.Equal(t, "pk_123", cfg.ClickUp.Token)
	assert.Equal(t, "901", cfg.ClickUp.ListID)
	assert.Equal(t, "https://api.clickup.com/api/v2", cfg.ClickUp.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.GMUD.PollInterval)
	assert.Equal(t, 3*time.Minute, cfg.GMUD.Timeout)
	assert.Equal(t, "https://chat.example.com/hook", cfg.Notify.WebhookURL)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "https://api.github.com/", cfg.GitHub.APIURL)
}

func TestInputs_Config_EqualLabels(t *testing.T) {
	env := baseEnv()
	env["INPUT_STATUS_APPROVED"] = "done"
	env["INPUT_STATUS_REJECTED"] = "DONE"
	in, err := action.LoadInputs(lookupFrom(env))
	require.NoError(t, err)

	_, err = in.Config("")
	assert.True(t, domain.IsConfigError(err))
}

func TestWriteOutputs_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(path, []byte("prev=1\n"), 0o644))

	err := action.WriteOutputs(path, nil, action.Outputs{TaskID: "999", Approved: true, Status: "APROVADAS"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "prev=1\ntask_id=999\napproved=true\nstatus=APROVADAS\n", string(data))
}

func TestWriteOutputs_Fallback(t *testing.T) {
	var buf bytes.Buffer

	err := action.WriteOutputs("", &buf, action.Outputs{Status: "SKIPPED", Approved: true})
	require.NoError(t, err)

	assert.Equal(t,
		"::set-output name=task_id::\n::set-output name=approved::true\n::set-output name=status::SKIPPED\n",
		buf.String())
}

func TestOutputsFor(t *testing.T) {
	cases := []struct {
		name string
		res  *gmud.Result
		want action.Outputs
	}{
		{"nil", nil, action.Outputs{}},
		{"skipped", &gmud.Result{Skipped: true, Decision: domain.Decision{Outcome: domain.OutcomeSkipped}},
			action.Outputs{Approved: true, Status: "SKIPPED"}},
		{"approved", &gmud.Result{TaskID: "999", Decision: domain.Decision{Outcome: domain.OutcomeApproved, Status: "aprovadas"}},
			action.Outputs{TaskID: "999", Approved: true, Status: "aprovadas"}},
		{"rejected", &gmud.Result{TaskID: "1", Decision: domain.Decision{Outcome: domain.OutcomeRejected, Status: "negadas"}},
			action.Outputs{TaskID: "1", Status: "negadas"}},
		{"timed out without status", &gmud.Result{TaskID: "2", Decision: domain.Decision{Outcome: domain.OutcomeTimedOut}},
			action.Outputs{TaskID: "2", Status: "TIMED_OUT"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, action.OutputsFor(tc.res))
		})
	}
}
