// Package pipeline собирает метаданные запуска CI (коммит, pull request) для
// описания GMUD. Все сбои здесь не фатальны: тикет создается и без них.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	gh "github.com/google/go-github/v82/github"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gregjones/httpcache"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/description"
)

// Env: переменные окружения GitHub Actions, которые нам нужны.
type Env struct {
	SHA        string
	Repository string // owner/repo
	EventName  string
	EventPath  string
	ServerURL  string
	RunID      string
	Actor      string
}

// EnvFromOS читает окружение раннера.
func EnvFromOS() Env {
	return EnvFromLookup(os.Getenv)
}

func EnvFromLookup(get func(string) string) Env {
	return Env{
		SHA:        get("GITHUB_SHA"),
		Repository: get("GITHUB_REPOSITORY"),
		EventName:  get("GITHUB_EVENT_NAME"),
		EventPath:  get("GITHUB_EVENT_PATH"),
		ServerURL:  get("GITHUB_SERVER_URL"),
		RunID:      get("GITHUB_RUN_ID"),
		Actor:      get("GITHUB_ACTOR"),
	}
}

// RunURL собирает ссылку на текущий запуск workflow. Пусто, если данных не хватает.
func (e Env) RunURL() string {
	if e.ServerURL == "" || e.Repository == "" || e.RunID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/actions/runs/%s", strings.TrimRight(e.ServerURL, "/"), e.Repository, e.RunID)
}

func (e Env) IsPullRequest() bool {
	return e.EventName == "pull_request" || e.EventName == "pull_request_target"
}

type Enricher struct {
	gh     *gh.Client
	logger *zap.Logger
}

// NewEnricher собирает стек транспорта:
//  1. httpcache (условные запросы по ETag)
//  2. go-github-ratelimit (ждет при вторичных лимитах)
//  3. go-github
func NewEnricher(token, apiURL string, logger *zap.Logger) (*Enricher, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if apiURL != "" {
		u, err := parseBaseURL(apiURL)
		if err != nil {
			return nil, err
		}
		client.BaseURL = u
	}

	return &Enricher{gh: client, logger: logger.Named("pipeline")}, nil
}

// NewEnricherWithHTTPClient нужен тестам: httptest-сервер вместо api.github.com.
func NewEnricherWithHTTPClient(httpClient *http.Client, baseURL string, logger *zap.Logger) (*Enricher, error) {
	client := gh.NewClient(httpClient)
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	client.BaseURL = u
	return &Enricher{gh: client, logger: logger.Named("pipeline")}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing github api url: %w", err)
	}
	return u, nil
}

// Commit запрашивает коммит GITHUB_SHA через REST API.
func (e *Enricher) Commit(ctx context.Context, env Env) (*description.CommitInfo, error) {
	if env.SHA == "" {
		return nil, nil
	}
	owner, repo, err := splitRepo(env.Repository)
	if err != nil {
		return nil, err
	}

	rc, _, err := e.gh.Repositories.GetCommit(ctx, owner, repo, env.SHA, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching commit %s: %w", env.SHA, err)
	}

	info := &description.CommitInfo{
		SHA:     env.SHA,
		Message: rc.GetCommit().GetMessage(),
		Author:  rc.GetCommit().GetAuthor().GetName(),
		URL:     rc.GetHTMLURL(),
	}
	if info.Author == "" {
		info.Author = rc.GetAuthor().GetLogin()
	}
	if rc.GetSHA() != "" {
		info.SHA = rc.GetSHA()
	}
	return info, nil
}

// PullRequest разбирает файл события; для остальных событий возвращает nil.
func PullRequest(env Env) (*description.PRInfo, error) {
	if !env.IsPullRequest() || env.EventPath == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(env.EventPath)
	if err != nil {
		return nil, fmt.Errorf("reading event payload: %w", err)
	}

	parsed, err := gh.ParseWebHook("pull_request", raw)
	if err != nil {
		return nil, fmt.Errorf("parsing pull_request event: %w", err)
	}
	ev, ok := parsed.(*gh.PullRequestEvent)
	if !ok || ev.GetPullRequest() == nil {
		return nil, nil
	}

	pr := ev.GetPullRequest()
	number := pr.GetNumber()
	if number == 0 {
		number = ev.GetNumber()
	}
	return &description.PRInfo{
		Number:  number,
		Title:   pr.GetTitle(),
		Author:  pr.GetUser().GetLogin(),
		HeadRef: pr.GetHead().GetRef(),
		BaseRef: pr.GetBase().GetRef(),
		URL:     pr.GetHTMLURL(),
	}, nil
}

// Enrich работает best-effort: ошибки логируются, соответствующая часть описания опускается.
func (e *Enricher) Enrich(ctx context.Context, env Env, withCommit, withPR bool) (*description.CommitInfo, *description.PRInfo) {
	var (
		commit *description.CommitInfo
		pr     *description.PRInfo
		err    error
	)

	if withCommit {
		if commit, err = e.Commit(ctx, env); err != nil {
			e.logger.Warn("commit info unavailable", zap.String("sha", env.SHA), zap.Error(err))
			commit = nil
		}
	}
	if withPR {
		if pr, err = PullRequest(env); err != nil {
			e.logger.Warn("pull request info unavailable", zap.String("event", env.EventName), zap.Error(err))
			pr = nil
		}
	}
	return commit, pr
}

func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q, expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
