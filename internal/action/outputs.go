package action

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/gmud"
)

// Outputs — task_id, approved ("true"/"false"), status.
type Outputs struct {
	TaskID   string
	Approved bool
	Status   string
}

func (o Outputs) pairs() [][2]string {
	return [][2]string{
		{"task_id", o.TaskID},
		{"approved", strconv.FormatBool(o.Approved)},
		{"status", o.Status},
	}
}

// WriteOutputs дописывает key=value в файл GITHUB_OUTPUT. Без файла
// (старые раннеры, локальный запуск) печатает ::set-output в fallback.
func WriteOutputs(path string, fallback io.Writer, o Outputs) error {
	if path == "" {
		for _, kv := range o.pairs() {
			if _, err := fmt.Fprintf(fallback, "::set-output name=%s::%s\n", kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open GITHUB_OUTPUT: %w", err)
	}
	defer f.Close()

	for _, kv := range o.pairs() {
		if _, err := fmt.Fprintf(f, "%s=%s\n", kv[0], kv[1]); err != nil {
			return fmt.Errorf("write GITHUB_OUTPUT: %w", err)
		}
	}
	return nil
}

// OutputsFor переводит итог прогона в выходы шага. SKIPPED считается одобрением.
func OutputsFor(res *gmud.Result) Outputs {
	if res == nil {
		return Outputs{}
	}
	if res.Skipped {
		return Outputs{Approved: true, Status: string(domain.OutcomeSkipped)}
	}
	status := res.Decision.Status
	if status == "" {
		status = string(res.Decision.Outcome)
	}
	return Outputs{TaskID: res.TaskID, Approved: res.Approved(), Status: status}
}
