package profile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MaxPositions = 8

	PatternCircle  = "circle"
	PatternSquare  = "square"
	PatternFigure8 = "figure8"
	PatternPath    = "path"

	DefaultProfilePrefix = "Profile"
	DefaultSetPrefix     = "Set"
)

var (
	ErrLastProfile = errors.New("at least one profile is required")
	ErrLastSet     = errors.New("at least one set is required")
	ErrNotFound    = errors.New("not found")
)

// ClickPosition is a stored screen coordinate clicked by a set.
// IntervalMS of zero falls back to the set's global click interval.
type ClickPosition struct {
	Enabled    bool `json:"enabled"`
	X          int  `json:"x"`
	Y          int  `json:"y"`
	IntervalMS int  `json:"interval_ms"`
}

// Switch moves the runner to another set once the set has been active for
// Min minutes and Sec seconds. A zero duration switches after one cycle.
type Switch struct {
	Enabled bool `json:"enabled"`
	Min     int  `json:"min"`
	Sec     int  `json:"sec"`
	Target  int  `json:"target"`
}

// Seconds returns the switch delay in seconds.
func (s Switch) Seconds() int {
	return s.Min*60 + s.Sec
}

// JumpBack moves the runner to Target after every full cycle. It takes
// priority over Switch.
type JumpBack struct {
	Enabled bool `json:"enabled"`
	Target  int  `json:"target"`
}

type Click struct {
	Enabled          bool            `json:"enabled"`
	IntervalEnabled  bool            `json:"interval_enabled"`
	GlobalIntervalMS int             `json:"global_interval_ms"`
	PositionsEnabled bool            `json:"positions_enabled"`
	Positions        []ClickPosition `json:"positions"`
}

// ActivePositions returns the enabled positions in order.
func (c Click) ActivePositions() []ClickPosition {
	var active []ClickPosition
	for _, p := range c.Positions {
		if p.Enabled {
			active = append(active, p)
		}
	}
	return active
}

// Point is a vertex of a hand-drawn movement path.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON writes the point as an [x, y] pair.
func (p Point) MarshalJSON() ([]byte, error) {
	return []byte("[" + strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64) + "]"), nil
}

type Movement struct {
	Enabled    bool    `json:"enabled"`
	Pattern    string  `json:"pattern"`
	Size       int     `json:"size"`
	Steps      int     `json:"steps"`
	StepMS     int     `json:"step_ms"`
	Path       []Point `json:"path"`
	PathStepPx float64 `json:"path_step_px"`
}

// Set is one configured stage of a profile.
type Set struct {
	Name     string   `json:"name,omitempty"`
	Keys     string   `json:"keys"`
	InnerMS  int      `json:"inner_ms"`
	RepeatMS int      `json:"repeat_ms"`
	Switch   Switch   `json:"switch"`
	JumpBack JumpBack `json:"jump_back"`
	Click    Click    `json:"click"`
	Movement Movement `json:"movement"`
}

// NewSet returns the configuration of a freshly added set.
func NewSet() Set {
	return Set{
		InnerMS:  150,
		RepeatMS: 150,
		Switch:   Switch{Target: 1},
		JumpBack: JumpBack{Target: 1},
		Click:    Click{GlobalIntervalMS: 200},
		Movement: defaultMovement(),
	}
}

func defaultMovement() Movement {
	return Movement{
		Pattern:    PatternCircle,
		Size:       50,
		Steps:      36,
		StepMS:     15,
		PathStepPx: 4,
	}
}

// KeyList splits the comma separated key field into normalized key names.
func (s Set) KeyList() []string {
	var keys []string
	for _, k := range strings.Split(s.Keys, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// SingleClickCycle reports whether entering the set performs one pass over
// its positions instead of clicking on an interval.
func (s Set) SingleClickCycle() bool {
	return s.Click.Enabled && !s.Click.IntervalEnabled && s.Click.PositionsEnabled && len(s.Click.Positions) > 0
}

// CanCapturePositions reports whether captured coordinates may be added.
func (s Set) CanCapturePositions() bool {
	return s.Click.Enabled && s.Click.PositionsEnabled
}

// AddPosition appends an enabled position. It returns false once the set
// already holds MaxPositions.
func (s *Set) AddPosition(x, y int) bool {
	if len(s.Click.Positions) >= MaxPositions {
		return false
	}
	s.Click.Positions = append(s.Click.Positions, ClickPosition{Enabled: true, X: x, Y: y})
	return true
}

func (s *Set) RemovePosition(i int) error {
	if i < 0 || i >= len(s.Click.Positions) {
		return fmt.Errorf("position %d: %w", i+1, ErrNotFound)
	}
	s.Click.Positions = append(s.Click.Positions[:i], s.Click.Positions[i+1:]...)
	return nil
}

// EnablePosition turns position i on or off without removing it.
func (s *Set) EnablePosition(i int, on bool) error {
	if i < 0 || i >= len(s.Click.Positions) {
		return fmt.Errorf("position %d: %w", i+1, ErrNotFound)
	}
	s.Click.Positions[i].Enabled = on
	return nil
}

func (s *Set) ClearPositions() {
	s.Click.Positions = nil
}

// Profile is a named, independently runnable list of sets.
type Profile struct {
	Name string
	Sets []Set
}

// NewProfile returns a profile holding one default set.
func NewProfile(name string) Profile {
	return Profile{Name: name, Sets: []Set{NewSet()}}
}

// SetTitle returns the set's display name, "Set N" when unnamed.
func (p *Profile) SetTitle(i int) string {
	if i >= 0 && i < len(p.Sets) && p.Sets[i].Name != "" {
		return p.Sets[i].Name
	}
	return fmt.Sprintf("%s %d", DefaultSetPrefix, i+1)
}

// AddSet appends set and returns its index.
func (p *Profile) AddSet(set Set) int {
	p.Sets = append(p.Sets, set)
	return len(p.Sets) - 1
}

// AutoSetName returns the first unused "Set N" title.
func (p *Profile) AutoSetName() string {
	titles := make([]string, len(p.Sets))
	for i := range p.Sets {
		titles[i] = p.SetTitle(i)
	}
	return nextFreeName(DefaultSetPrefix, titles)
}

func (p *Profile) DeleteSet(i int) error {
	if i < 0 || i >= len(p.Sets) {
		return fmt.Errorf("set %d: %w", i+1, ErrNotFound)
	}
	if len(p.Sets) == 1 {
		return ErrLastSet
	}
	p.Sets = append(p.Sets[:i], p.Sets[i+1:]...)
	return nil
}

func (p *Profile) RenameSet(i int, name string) error {
	if i < 0 || i >= len(p.Sets) {
		return fmt.Errorf("set %d: %w", i+1, ErrNotFound)
	}
	p.Sets[i].Name = strings.TrimSpace(name)
	return nil
}

// nextFreeName finds the smallest positive n such that "<prefix> n" is not
// among titles.
func nextFreeName(prefix string, titles []string) string {
	used := make(map[int]struct{})
	for _, title := range titles {
		tail, ok := strings.CutPrefix(title, prefix+" ")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(tail))
		if err == nil && n > 0 {
			used[n] = struct{}{}
		}
	}

	n := 1
	for {
		if _, taken := used[n]; !taken {
			break
		}
		n++
	}
	return fmt.Sprintf("%s %d", prefix, n)
}
