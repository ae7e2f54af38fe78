package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

type Storage struct {
	mu      sync.Mutex
	baseDir string
}

const (
	dailyMetricsDir = "daily"
	dateLayout      = "2006-01-02"
)

func NewStorage(baseDir string) (*Storage, error) {
	dailyDir := filepath.Join(baseDir, dailyMetricsDir)
	if err := os.MkdirAll(dailyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metrics directory: %w", err)
	}

	return &Storage{
		baseDir: baseDir,
	}, nil
}

func (s *Storage) SaveSession(session *SessionMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := session.Timestamp.Format(dateLayout)

	// Load or create daily metrics
	dailyMetrics, err := s.GetDailyMetrics(date)
	if err != nil {
		dailyMetrics = &DailyMetrics{
			Date:     date,
			Sessions: []SessionMetrics{},
		}
	}

	dailyMetrics.Sessions = append(dailyMetrics.Sessions, *session)

	dailyMetrics.TotalKeys += session.Keys
	dailyMetrics.TotalClicks += session.Clicks
	dailyMetrics.TotalMoves += session.Moves
	dailyMetrics.TotalDuration += session.Duration
	dailyMetrics.SessionCount = len(dailyMetrics.Sessions)

	return s.saveDailyMetrics(dailyMetrics)
}

func (s *Storage) dailyPath(date string) string {
	return filepath.Join(s.baseDir, dailyMetricsDir, fmt.Sprintf("%s.json", date))
}

func (s *Storage) GetDailyMetrics(date string) (*DailyMetrics, error) {
	data, err := os.ReadFile(s.dailyPath(date))
	if os.IsNotExist(err) {
		return &DailyMetrics{
			Date:     date,
			Sessions: []SessionMetrics{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	var dailyMetrics DailyMetrics
	if err := json.Unmarshal(data, &dailyMetrics); err != nil {
		return nil, err
	}

	return &dailyMetrics, nil
}

func (s *Storage) saveDailyMetrics(metrics *DailyMetrics) error {
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}

	return atomic.WriteFile(s.dailyPath(metrics.Date), bytes.NewReader(data))
}

func (s *Storage) GetTotalMetrics() (*TotalMetrics, error) {
	all, err := s.GetAllDailyMetrics()
	if err != nil {
		return nil, err
	}

	totalMetrics := &TotalMetrics{SessionsPerProfile: map[string]int{}}
	for _, day := range all {
		totalMetrics.TotalKeys += day.TotalKeys
		totalMetrics.TotalClicks += day.TotalClicks
		totalMetrics.TotalMoves += day.TotalMoves
		totalMetrics.TotalDuration += day.TotalDuration
		totalMetrics.TotalSessions += day.SessionCount
		for _, session := range day.Sessions {
			totalMetrics.SessionsPerProfile[session.Profile]++
		}
	}

	// Calculate averages
	if totalMetrics.TotalSessions > 0 {
		totalMetrics.AvgDuration = totalMetrics.TotalDuration / time.Duration(totalMetrics.TotalSessions)
		totalMetrics.AvgActionsPerMin = actionRate(totalMetrics.TotalKeys+totalMetrics.TotalClicks, totalMetrics.TotalDuration)
	}

	return totalMetrics, nil
}

func (s *Storage) GetRecentDays(days int) ([]*DailyMetrics, error) {
	var recentMetrics []*DailyMetrics

	for i := days - 1; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i).Format(dateLayout)
		dailyMetrics, err := s.GetDailyMetrics(date)
		if err != nil {
			continue // Skip problematic days
		}
		recentMetrics = append(recentMetrics, dailyMetrics)
	}

	return recentMetrics, nil
}

func (s *Storage) ClearAllMetrics() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dailyDir := filepath.Join(s.baseDir, dailyMetricsDir)

	files, err := os.ReadDir(dailyDir)
	if err != nil {
		return nil // Directory doesn't exist, nothing to clear
	}

	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".json" {
			filePath := filepath.Join(dailyDir, file.Name())
			if err := os.Remove(filePath); err != nil {
				return fmt.Errorf("failed to remove %s: %w", file.Name(), err)
			}
		}
	}

	return nil
}

// GetAllDailyMetrics returns every stored day in date order. Unreadable
// files are skipped.
func (s *Storage) GetAllDailyMetrics() ([]*DailyMetrics, error) {
	dailyDir := filepath.Join(s.baseDir, dailyMetricsDir)

	files, err := os.ReadDir(dailyDir)
	if err != nil {
		return []*DailyMetrics{}, nil
	}

	var fileNames []string
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".json" {
			fileNames = append(fileNames, file.Name())
		}
	}

	// Sort file names to get chronological order
	sort.Strings(fileNames)

	var allMetrics []*DailyMetrics
	for _, fileName := range fileNames {
		data, err := os.ReadFile(filepath.Join(dailyDir, fileName))
		if err != nil {
			continue
		}

		var dailyMetrics DailyMetrics
		if err := json.Unmarshal(data, &dailyMetrics); err != nil {
			continue
		}

		allMetrics = append(allMetrics, &dailyMetrics)
	}

	return allMetrics, nil
}
