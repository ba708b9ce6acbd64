package gmud

import (
	"fmt"
	"time"
)

// Тексты уведомлений в чат. Язык тот же, что у ревьюеров в ClickUp.

func msgCreated(name, url string) string {
	if url == "" {
		return fmt.Sprintf("📋 GMUD criada: %s", name)
	}
	return fmt.Sprintf("📋 GMUD criada: %s\n%s", name, url)
}

func msgSkipped(house, environment string) string {
	return fmt.Sprintf("⏭️ GMUD dispensada para %s em ambiente não produtivo (%s)", house, environment)
}

func msgApproved(taskID string) string {
	return fmt.Sprintf("✅ GMUD %s aprovada! Continuando o deploy...", taskID)
}

func msgRejected(taskID string) string {
	return fmt.Sprintf("❌ GMUD %s negada! Abortando deploy...", taskID)
}

func msgTimedOut(taskID string, timeout time.Duration) string {
	return fmt.Sprintf("⏰ Timeout aguardando aprovação da GMUD %s (%d minutos)", taskID, int(timeout.Minutes()))
}
