package domain

import "time"

// CommandStats is the aggregate counter row for a single command.
type CommandStats struct {
	ID             int64     `db:"id"`
	CommandName    string    `db:"command_name"`
	ExecutionCount int64     `db:"execution_count"`
	TotalUsers     int64     `db:"total_users"`
	LastExecution  time.Time `db:"last_execution"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// AvgPerUser returns the mean execution count per distinct user.
func (s *CommandStats) AvgPerUser() float64 {
	if s.TotalUsers == 0 {
		return 0
	}
	return float64(s.ExecutionCount) / float64(s.TotalUsers)
}

// CommandExecution is the durable per-event row used for trend queries.
type CommandExecution struct {
	ID          int64     `db:"id"`
	CommandName string    `db:"command_name"`
	UserID      int64     `db:"user_id"`
	ExecutedAt  time.Time `db:"executed_at"`
}

// CommandCount pairs a command with its execution count for top-N queries.
type CommandCount struct {
	CommandName string `db:"command_name"`
	Count       int64  `db:"count"`
}

// DailyCount is one point of the daily usage trend.
type DailyCount struct {
	Day   time.Time `db:"day"`
	Count int64     `db:"count"`
}

// TotalStats aggregates counters across every tracked command.
type TotalStats struct {
	TotalExecutions int64 `db:"total_executions"`
	TotalUsers      int64 `db:"total_users"`
	TotalCommands   int64 `db:"total_commands"`
}
