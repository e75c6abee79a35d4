package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/japanlife/assistbot/internal/domain"
	"github.com/japanlife/assistbot/internal/repository"
)

// Reporter renders usage statistics for the admin commands.
type Reporter struct {
	repo repository.Stats
}

// NewReporter builds a reporter over the stats repository.
func NewReporter(repo repository.Stats) *Reporter {
	return &Reporter{repo: repo}
}

// Summary renders the global usage report.
func (r *Reporter) Summary(ctx context.Context) (string, error) {
	totals, err := r.repo.TotalStats(ctx)
	if err != nil {
		return "", fmt.Errorf("load totals: %w", err)
	}
	top, err := r.repo.TopCommands(ctx, 5)
	if err != nil {
		return "", fmt.Errorf("load top commands: %w", err)
	}

	var b strings.Builder
	b.WriteString("📊 Общая статистика\n\n")
	fmt.Fprintf(&b, "Всего выполнений: %d\n", totals.TotalExecutions)
	fmt.Fprintf(&b, "Уникальных пользователей: %d\n", totals.TotalUsers)
	fmt.Fprintf(&b, "Команд в работе: %d\n", totals.TotalCommands)
	if len(top) > 0 {
		b.WriteString("\n🏆 Популярные команды:\n")
		for i, c := range top {
			fmt.Fprintf(&b, "%d. %s — %d\n", i+1, c.CommandName, c.Count)
		}
	}
	return b.String(), nil
}

// Detailed renders the top-10 commands plus the usage trend for the last
// seven days.
func (r *Reporter) Detailed(ctx context.Context) (string, error) {
	top, err := r.repo.TopCommands(ctx, 10)
	if err != nil {
		return "", fmt.Errorf("load top commands: %w", err)
	}
	trend, err := r.repo.UsageTrend(ctx, 7)
	if err != nil {
		return "", fmt.Errorf("load usage trend: %w", err)
	}

	var b strings.Builder
	b.WriteString("📈 Детальная статистика\n\n")
	if len(top) == 0 {
		b.WriteString("Пока нет данных.\n")
		return b.String(), nil
	}
	b.WriteString("🏆 Топ-10 команд:\n")
	for i, c := range top {
		fmt.Fprintf(&b, "%d. %s — %d\n", i+1, c.CommandName, c.Count)
	}
	if len(trend) > 0 {
		b.WriteString("\n📅 Активность за 7 дней:\n")
		for _, d := range trend {
			fmt.Fprintf(&b, "%s — %d\n", d.Day.Format("02.01"), d.Count)
		}
	}
	return b.String(), nil
}

// Command renders the report for a single command. A command that was never
// executed yields a friendly message instead of an error.
func (r *Reporter) Command(ctx context.Context, command string) (string, error) {
	s, err := r.repo.CommandStats(ctx, command)
	if err != nil {
		if errors.Is(err, repository.ErrStatsNotFound) {
			return fmt.Sprintf("Команда %s ещё не выполнялась.", command), nil
		}
		return "", fmt.Errorf("load command stats: %w", err)
	}
	return renderCommand(s), nil
}

func renderCommand(s *domain.CommandStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика команды %s\n\n", s.CommandName)
	fmt.Fprintf(&b, "Выполнений: %d\n", s.ExecutionCount)
	fmt.Fprintf(&b, "Пользователей: %d\n", s.TotalUsers)
	fmt.Fprintf(&b, "В среднем на пользователя: %.1f\n", s.AvgPerUser())
	if !s.LastExecution.IsZero() {
		fmt.Fprintf(&b, "Последнее выполнение: %s\n", s.LastExecution.Format("02.01.2006 15:04"))
	}
	return b.String()
}
