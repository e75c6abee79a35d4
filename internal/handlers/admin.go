package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/japanlife/assistbot/core/buildinfo"
	"github.com/japanlife/assistbot/internal/dispatch"
	"github.com/japanlife/assistbot/internal/stats"
)

// Admin serves the administrative reporting commands.
type Admin struct {
	Reports *stats.Reporter
}

// NewAdmin builds the admin handler set.
func NewAdmin(reports *stats.Reporter) *Admin {
	return &Admin{Reports: reports}
}

// Stats replies with the global usage summary.
func (h *Admin) Stats(ctx context.Context, dc *dispatch.Context) error {
	report, err := h.Reports.Summary(ctx)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	_, err = dc.Event.Reply(report)
	return err
}

// StatsDetailed replies with the top-10 commands and the weekly trend.
func (h *Admin) StatsDetailed(ctx context.Context, dc *dispatch.Context) error {
	report, err := h.Reports.Detailed(ctx)
	if err != nil {
		return fmt.Errorf("build detailed report: %w", err)
	}
	_, err = dc.Event.Reply(report)
	return err
}

// CommandStats replies with the report for one command. The command name
// arrives as a validated argument.
func (h *Admin) CommandStats(ctx context.Context, dc *dispatch.Context) error {
	name, ok := dc.Args.String("команда")
	if !ok {
		return fmt.Errorf("command argument missing")
	}
	name = strings.TrimPrefix(name, "/")

	report, err := h.Reports.Command(ctx, name)
	if err != nil {
		return fmt.Errorf("build command report: %w", err)
	}
	_, err = dc.Event.Reply(report)
	return err
}

// Info replies with build and runtime details.
func (h *Admin) Info(_ context.Context, dc *dispatch.Context) error {
	text := fmt.Sprintf(
		"🤖 Бот Japan Life\n\nВерсия: %s\nКоммит: %s\nСборка: %s",
		buildinfo.Version, buildinfo.Commit, buildinfo.Date,
	)
	_, err := dc.Event.Reply(text)
	return err
}
