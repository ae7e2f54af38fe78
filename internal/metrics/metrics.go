package metrics

import (
	"time"

	"github.com/google/uuid"

	"github.com/buttonmasher/masher/internal/runner"
)

type SessionMetrics struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Profile   string        `json:"profile"`
	Duration  time.Duration `json:"duration"`
	Keys      int64         `json:"keys"`
	Clicks    int64         `json:"clicks"`
	Moves     int64         `json:"moves"`
	Rate      int           `json:"rate"` // actions per minute
}

// Actions is the number of key presses and clicks in the session.
func (s SessionMetrics) Actions() int64 {
	return s.Keys + s.Clicks
}

type DailyMetrics struct {
	Date          string           `json:"date"`
	Sessions      []SessionMetrics `json:"sessions"`
	TotalKeys     int64            `json:"total_keys"`
	TotalClicks   int64            `json:"total_clicks"`
	TotalMoves    int64            `json:"total_moves"`
	TotalDuration time.Duration    `json:"total_duration"`
	SessionCount  int              `json:"session_count"`
}

type TotalMetrics struct {
	TotalKeys          int64          `json:"total_keys"`
	TotalClicks        int64          `json:"total_clicks"`
	TotalMoves         int64          `json:"total_moves"`
	TotalSessions      int            `json:"total_sessions"`
	TotalDuration      time.Duration  `json:"total_duration"`
	AvgDuration        time.Duration  `json:"avg_duration"`
	AvgActionsPerMin   int            `json:"avg_actions_per_min"`
	SessionsPerProfile map[string]int `json:"sessions_per_profile"`
}

type MetricsManager struct {
	storage *Storage
}

func NewMetricsManager(storagePath string) (*MetricsManager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, err
	}
	return &MetricsManager{storage: storage}, nil
}

// RecordSession stores a finished run. Runs that did nothing are skipped and
// return nil.
func (mm *MetricsManager) RecordSession(run runner.Summary) (*SessionMetrics, error) {
	if run.Keys == 0 && run.Clicks == 0 && run.Moves == 0 {
		return nil, nil
	}

	timestamp := run.StartedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	session := &SessionMetrics{
		ID:        uuid.NewString(),
		Timestamp: timestamp,
		Profile:   run.Profile,
		Duration:  run.Duration,
		Keys:      run.Keys,
		Clicks:    run.Clicks,
		Moves:     run.Moves,
		Rate:      actionRate(run.Keys+run.Clicks, run.Duration),
	}

	if err := mm.storage.SaveSession(session); err != nil {
		return session, err
	}
	return session, nil
}

func (mm *MetricsManager) GetTodayMetrics() (*DailyMetrics, error) {
	today := time.Now().Format(dateLayout)
	return mm.storage.GetDailyMetrics(today)
}

func (mm *MetricsManager) GetTotalMetrics() (*TotalMetrics, error) {
	return mm.storage.GetTotalMetrics()
}

func (mm *MetricsManager) GetRecentDays(days int) ([]*DailyMetrics, error) {
	return mm.storage.GetRecentDays(days)
}

func (mm *MetricsManager) ClearAllMetrics() error {
	return mm.storage.ClearAllMetrics()
}

func actionRate(actions int64, duration time.Duration) int {
	minutes := duration.Minutes()
	if minutes <= 0 {
		return 0
	}
	return int(float64(actions) / minutes)
}
