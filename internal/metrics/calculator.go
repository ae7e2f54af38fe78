package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type TimeFormatter struct{}

func NewTimeFormatter() *TimeFormatter {
	return &TimeFormatter{}
}

func (tf *TimeFormatter) FormatDuration(duration time.Duration) string {
	if duration < time.Second {
		return "0 seconds"
	}

	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	seconds := int(duration.Seconds()) % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%d hours %d minutes", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%d hours", hours)
	case minutes > 0 && seconds > 0:
		return fmt.Sprintf("%d minutes %d seconds", minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d seconds", seconds)
}

func (tf *TimeFormatter) FormatDurationShort(duration time.Duration) string {
	if duration < time.Second {
		return "0s"
	}

	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	seconds := int(duration.Seconds()) % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0 && seconds > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", seconds)
}

type StatsFormatter struct {
	timeFormatter *TimeFormatter
}

func NewStatsFormatter() *StatsFormatter {
	return &StatsFormatter{
		timeFormatter: NewTimeFormatter(),
	}
}

func (sf *StatsFormatter) FormatSessionSummaryLines(session *SessionMetrics, todayMetrics *DailyMetrics) []string {
	lines := []string{
		fmt.Sprintf("⏹  %s ran for %s", session.Profile, sf.timeFormatter.FormatDurationShort(session.Duration)),
		fmt.Sprintf("⌨️  %d keys, %d clicks, %d moves", session.Keys, session.Clicks, session.Moves),
	}

	if session.Rate > 0 {
		lines = append(lines, fmt.Sprintf("📊 Session: %d actions/min", session.Rate))
	}

	if todayMetrics != nil && todayMetrics.SessionCount > 0 {
		lines = append(lines, fmt.Sprintf("📈 Today: %d runs, %s total",
			todayMetrics.SessionCount,
			sf.timeFormatter.FormatDurationShort(todayMetrics.TotalDuration)))
	}

	return lines
}

func (sf *StatsFormatter) FormatTotalStats(totalMetrics *TotalMetrics) string {
	if totalMetrics.TotalSessions == 0 {
		return "📊 No runs recorded yet."
	}

	var b strings.Builder
	b.WriteString("📊 Total Statistics:\n")
	fmt.Fprintf(&b, "   Runs: %d\n", totalMetrics.TotalSessions)
	fmt.Fprintf(&b, "   Run time: %s\n", sf.timeFormatter.FormatDuration(totalMetrics.TotalDuration))
	fmt.Fprintf(&b, "   Keys pressed: %d\n", totalMetrics.TotalKeys)
	fmt.Fprintf(&b, "   Clicks: %d\n", totalMetrics.TotalClicks)
	fmt.Fprintf(&b, "   Pointer moves: %d\n", totalMetrics.TotalMoves)
	fmt.Fprintf(&b, "   Avg run: %s\n", sf.timeFormatter.FormatDurationShort(totalMetrics.AvgDuration))
	fmt.Fprintf(&b, "   Avg actions/min: %d", totalMetrics.AvgActionsPerMin)

	profiles := make([]string, 0, len(totalMetrics.SessionsPerProfile))
	for name := range totalMetrics.SessionsPerProfile {
		profiles = append(profiles, name)
	}
	sort.Slice(profiles, func(i, j int) bool {
		a, b := totalMetrics.SessionsPerProfile[profiles[i]], totalMetrics.SessionsPerProfile[profiles[j]]
		if a != b {
			return a > b
		}
		return profiles[i] < profiles[j]
	})
	for _, name := range profiles {
		fmt.Fprintf(&b, "\n   %s: %d runs", name, totalMetrics.SessionsPerProfile[name])
	}

	return b.String()
}

func (sf *StatsFormatter) FormatWeeklyStats(weeklyMetrics []*DailyMetrics) string {
	if len(weeklyMetrics) == 0 {
		return "📅 No weekly data available yet."
	}

	var (
		totalActions  int64
		totalDuration time.Duration
		totalSessions int
		activeDays    int
	)
	for _, day := range weeklyMetrics {
		if day.SessionCount > 0 {
			activeDays++
			totalActions += day.TotalKeys + day.TotalClicks
			totalDuration += day.TotalDuration
			totalSessions += day.SessionCount
		}
	}

	if activeDays == 0 {
		return "📅 No activity this week yet."
	}

	stats := "📅 This Week:\n"
	stats += fmt.Sprintf("   Active days: %d/%d\n", activeDays, len(weeklyMetrics))
	stats += fmt.Sprintf("   Runs: %d\n", totalSessions)
	stats += fmt.Sprintf("   Actions: %d\n", totalActions)
	stats += fmt.Sprintf("   Run time: %s", sf.timeFormatter.FormatDuration(totalDuration))

	return stats
}
