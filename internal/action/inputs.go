// Package action — адаптер GitHub Action: входы INPUT_*, выходы в GITHUB_OUTPUT.
package action

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/infra"
)

// Inputs хранит входы action.yml как есть, до сборки infra.Config.
type Inputs struct {
	Token       string
	ListID      string
	HouseName   string
	Environment string
	Actor       string
	PipelineURL string

	StatusPending  string
	StatusApproved string
	StatusRejected string
	StatusComplete string

	PollIntervalSeconds int
	TimeoutMinutes      int
	CompleteOnSuccess   bool

	NotificationWebhookURL string
	IncludeCommitInfo      bool
	IncludePRInfo          bool
	SkipNonProduction      bool

	GitHubToken string
	LogLevel    string
}

// Каждому входу соответствует INPUT_<NAME>. Старые португальские имена
// (casa/ambiente/usuario/clickup_token) читаются как запасные.
var aliases = map[string]string{
	"house_name":  "casa",
	"environment": "ambiente",
	"actor":       "usuario",
	"token":       "clickup_token",
}

func setInputDefaults(v *viper.Viper) {
	v.SetDefault("actor", "System")
	v.SetDefault("status_pending", "EM ANÁLISE")
	v.SetDefault("status_approved", "APROVADAS")
	v.SetDefault("status_rejected", "NEGADAS")
	v.SetDefault("status_complete", "COMPLETE")
	v.SetDefault("poll_interval_seconds", 30)
	v.SetDefault("timeout_minutes", 60)
	v.SetDefault("complete_on_success", true)
	v.SetDefault("include_commit_info", true)
	v.SetDefault("include_pr_info", true)
	v.SetDefault("skip_non_production", true)
	v.SetDefault("log_level", "info")
}

// LoadInputs читает INPUT_* через lookup (os.LookupEnv в проде, map в тестах).
func LoadInputs(lookup func(string) (string, bool)) (*Inputs, error) {
	v := viper.New()
	setInputDefaults(v)

	// Пустой вход в Actions приходит как пустая строка: считаем его отсутствующим
	keys := []string{
		"token", "list_id", "house_name", "environment", "actor", "pipeline_url",
		"status_pending", "status_approved", "status_rejected", "status_complete",
		"poll_interval_seconds", "timeout_minutes", "complete_on_success",
		"notification_webhook_url", "include_commit_info", "include_pr_info",
		"skip_non_production", "github_token", "log_level",
	}
	for _, key := range keys {
		if val, ok := input(lookup, key); ok {
			v.Set(key, val)
			continue
		}
		if alias, ok := aliases[key]; ok {
			if val, ok := input(lookup, alias); ok {
				v.Set(key, val)
			}
		}
	}

	in := &Inputs{
		Token:                  v.GetString("token"),
		ListID:                 v.GetString("list_id"),
		HouseName:              v.GetString("house_name"),
		Environment:            v.GetString("environment"),
		Actor:                  v.GetString("actor"),
		PipelineURL:            v.GetString("pipeline_url"),
		StatusPending:          v.GetString("status_pending"),
		StatusApproved:         v.GetString("status_approved"),
		StatusRejected:         v.GetString("status_rejected"),
		StatusComplete:         v.GetString("status_complete"),
		PollIntervalSeconds:    v.GetInt("poll_interval_seconds"),
		TimeoutMinutes:         v.GetInt("timeout_minutes"),
		CompleteOnSuccess:      v.GetBool("complete_on_success"),
		NotificationWebhookURL: v.GetString("notification_webhook_url"),
		IncludeCommitInfo:      v.GetBool("include_commit_info"),
		IncludePRInfo:          v.GetBool("include_pr_info"),
		SkipNonProduction:      v.GetBool("skip_non_production"),
		GitHubToken:            v.GetString("github_token"),
		LogLevel:               v.GetString("log_level"),
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

func input(lookup func(string) (string, bool), name string) (string, bool) {
	val, ok := lookup("INPUT_" + strings.ToUpper(name))
	val = strings.TrimSpace(val)
	return val, ok && val != ""
}

// Validate проверяет обязательные входы и положительные интервалы.
func (in *Inputs) Validate() error {
	switch {
	case in.Token == "":
		return domain.Required("token")
	case in.ListID == "":
		return domain.Required("list_id")
	case in.HouseName == "":
		return domain.Required("house_name")
	case in.Environment == "":
		return domain.Required("environment")
	case in.PollIntervalSeconds <= 0:
		return &domain.ConfigError{Field: "poll_interval_seconds", Reason: "must be a positive integer"}
	case in.TimeoutMinutes <= 0:
		return &domain.ConfigError{Field: "timeout_minutes", Reason: "must be a positive integer"}
	}
	return nil
}

// Config собирает общий infra.Config поверх тех же дефолтов, что у API.
func (in *Inputs) Config(githubAPIURL string) (*infra.Config, error) {
	v := viper.New()
	infra.SetDefaults(v)

	v.Set("clickup.token", in.Token)
	v.Set("clickup.list_id", in.ListID)
	v.Set("gmud.status_pending", in.StatusPending)
	v.Set("gmud.status_approved", in.StatusApproved)
	v.Set("gmud.status_rejected", in.StatusRejected)
	v.Set("gmud.status_complete", in.StatusComplete)
	v.Set("gmud.poll_interval", time.Duration(in.PollIntervalSeconds)*time.Second)
	v.Set("gmud.timeout", time.Duration(in.TimeoutMinutes)*time.Minute)
	v.Set("gmud.complete_on_success", in.CompleteOnSuccess)
	v.Set("gmud.skip_non_production", in.SkipNonProduction)
	v.Set("gmud.include_commit_info", in.IncludeCommitInfo)
	v.Set("gmud.include_pr_info", in.IncludePRInfo)
	v.Set("notify.webhook_url", in.NotificationWebhookURL)
	v.Set("github.token", in.GitHubToken)
	if githubAPIURL != "" {
		v.Set("github.api_url", githubAPIURL)
	}
	v.Set("logger.level", in.LogLevel)
	v.Set("logger.format", "console")

	var cfg infra.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode inputs: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
