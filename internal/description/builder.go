// Package description форматирует название и тело GMUD. Чистые функции, без I/O.
package description

import (
	"fmt"
	"strings"
)

// CommitInfo: метаданные коммита, из-за которого запущен деплой.
type CommitInfo struct {
	SHA     string
	Message string
	Author  string
	URL     string
}

// PRInfo заполняется, только если пайплайн запущен событием pull request.
type PRInfo struct {
	Number  int
	Title   string
	Author  string
	HeadRef string
	BaseRef string
	URL     string
}

type Input struct {
	Environment string
	House       string
	Actor       string
	PipelineURL string
	Commit      *CommitInfo
	PR          *PRInfo
}

const shortSHALen = 7

// TaskName задает формат названия задачи в списке GMUD.
func TaskName(house, environment, actor string) string {
	return fmt.Sprintf("[GMUD] %s - %s (por %s)", house, environment, actor)
}

// Build собирает markdown-комментарий для тикета. Отсутствующие части
// опускаются целиком, пустых заголовков не бывает.
func Build(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚀 **Pipeline iniciada por %s**\n\n", in.Actor)

	b.WriteString("📋 **Detalhes:**\n")
	fmt.Fprintf(&b, "- Casa: %s\n", in.House)
	fmt.Fprintf(&b, "- Ambiente: %s\n", in.Environment)
	fmt.Fprintf(&b, "- Usuário: %s\n", in.Actor)
	if in.PipelineURL != "" {
		fmt.Fprintf(&b, "- Pipeline: %s\n", in.PipelineURL)
	}

	if c := in.Commit; c != nil && c.SHA != "" {
		b.WriteString("\n🔖 **Commit:**\n")
		fmt.Fprintf(&b, "- SHA: `%s`\n", shortSHA(c.SHA))
		if msg := firstLine(c.Message); msg != "" {
			fmt.Fprintf(&b, "- Mensagem: %s\n", msg)
		}
		if c.Author != "" {
			fmt.Fprintf(&b, "- Autor: %s\n", c.Author)
		}
		if c.URL != "" {
			fmt.Fprintf(&b, "- Link: %s\n", c.URL)
		}
	}

	if pr := in.PR; pr != nil && pr.Number > 0 {
		b.WriteString("\n🔀 **Pull Request:**\n")
		if pr.Title != "" {
			fmt.Fprintf(&b, "- #%d: %s\n", pr.Number, pr.Title)
		} else {
			fmt.Fprintf(&b, "- #%d\n", pr.Number)
		}
		if pr.HeadRef != "" && pr.BaseRef != "" {
			fmt.Fprintf(&b, "- Branch: %s → %s\n", pr.HeadRef, pr.BaseRef)
		}
		if pr.Author != "" {
			fmt.Fprintf(&b, "- Autor: %s\n", pr.Author)
		}
		if pr.URL != "" {
			fmt.Fprintf(&b, "- Link: %s\n", pr.URL)
		}
	}

	b.WriteString("\n⏳ **Aguardando aprovação...**")
	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALen {
		return sha[:shortSHALen]
	}
	return sha
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
