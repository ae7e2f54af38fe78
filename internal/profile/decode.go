package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Values are read leniently: hand-edited files with numbers stored as
// strings, missing sections or wrong types still load, with every field
// clamped into the range the runner accepts.

func clampInt(v any, lo, hi, def int) int {
	f, ok := toNumber(v, false)
	if !ok {
		return def
	}
	// clamp before converting so huge values cannot wrap
	f = math.Trunc(f)
	if f <= float64(lo) {
		return lo
	}
	if f >= float64(hi) {
		return hi
	}
	return int(f)
}

// toNumber reads v as a number. Strings must hold an integer unless
// fractional is set; integers too long for int64 still count.
func toNumber(v any, fractional bool) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if fractional {
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, false
			}
			f = parsed
			break
		}
		n, err := strconv.ParseInt(s, 10, 64)
		switch {
		case err == nil:
			f = float64(n)
		case errors.Is(err, strconv.ErrRange):
			// n is already MaxInt64 or MinInt64
			f = float64(n)
		default:
			return 0, false
		}
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clampFloat(v any, lo, hi, def float64) float64 {
	f, ok := toNumber(v, true)
	if !ok {
		return def
	}
	return math.Max(lo, math.Min(hi, f))
}

// truthy mirrors loose boolean semantics: zero values and empty containers
// are false, everything else is true. A missing key yields def.
func truthy(m map[string]any, key string, def bool) bool {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asString(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func decodePosition(m map[string]any) ClickPosition {
	return ClickPosition{
		Enabled:    truthy(m, "enabled", true),
		X:          clampInt(m["x"], -10_000_000, 10_000_000, 0),
		Y:          clampInt(m["y"], -10_000_000, 10_000_000, 0),
		IntervalMS: clampInt(m["interval_ms"], 0, 9_999_999, 0),
	}
}

func decodePoints(v any) []Point {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Point
	for _, it := range list {
		pair, ok := it.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		x, okX := toNumber(pair[0], true)
		y, okY := toNumber(pair[1], true)
		if !okX || !okY {
			continue
		}
		out = append(out, Point{X: x, Y: y})
	}
	return out
}

var ErrUnknownPattern = errors.New("unknown movement pattern")

func normalizePattern(name string) (string, bool) {
	pattern := strings.ToLower(strings.TrimSpace(name))
	switch pattern {
	case PatternCircle, PatternSquare, PatternFigure8, PatternPath:
		return pattern, true
	case "figure-eight", "figure_eight", "eight":
		return PatternFigure8, true
	}
	return "", false
}

func decodeMovement(m map[string]any) Movement {
	def := defaultMovement()
	pattern, ok := normalizePattern(asString(m["pattern"], def.Pattern))
	if !ok {
		pattern = def.Pattern
	}
	return Movement{
		Enabled:    truthy(m, "enabled", false),
		Pattern:    pattern,
		Size:       clampInt(m["size"], 1, 5000, def.Size),
		Steps:      clampInt(m["steps"], 4, 3600, def.Steps),
		StepMS:     clampInt(m["step_ms"], 1, 60_000, def.StepMS),
		Path:       decodePoints(m["path"]),
		PathStepPx: clampFloat(m["path_step_px"], 0.5, 500, def.PathStepPx),
	}
}

func decodeSet(m map[string]any) Set {
	sw := asMap(m["switch"])
	jb := asMap(m["jump_back"])
	ck := asMap(m["click"])

	set := Set{
		Name:     strings.TrimSpace(asString(m["name"], "")),
		Keys:     asString(m["keys"], ""),
		InnerMS:  clampInt(m["inner_ms"], 1, 9_999_999, 50),
		RepeatMS: clampInt(m["repeat_ms"], 1, 9_999_999, 150),
		Switch: Switch{
			Enabled: truthy(sw, "enabled", false),
			Min:     clampInt(sw["min"], 0, 180, 0),
			Sec:     clampInt(sw["sec"], 0, 59, 0),
			Target:  clampInt(sw["target"], 1, 999, 1),
		},
		JumpBack: JumpBack{
			Enabled: truthy(jb, "enabled", false),
			Target:  clampInt(jb["target"], 1, 999, 1),
		},
		Click: Click{
			Enabled:          truthy(ck, "enabled", false),
			IntervalEnabled:  truthy(ck, "interval_enabled", false),
			GlobalIntervalMS: clampInt(ck["global_interval_ms"], 10, 9_999_999, 200),
			PositionsEnabled: truthy(ck, "positions_enabled", false),
		},
		Movement: decodeMovement(asMap(m["movement"])),
	}

	if list, ok := ck["positions"].([]any); ok {
		if len(list) > MaxPositions {
			list = list[:MaxPositions]
		}
		for _, it := range list {
			if pm, ok := it.(map[string]any); ok {
				set.Click.Positions = append(set.Click.Positions, decodePosition(pm))
			}
		}
	}
	return set
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}

// Normalize clamps the fields of s into the ranges a loaded file would get
// and rejects unknown movement patterns.
func (s *Set) Normalize() error {
	pattern, ok := normalizePattern(s.Movement.Pattern)
	if !ok {
		return fmt.Errorf("%q: %w", s.Movement.Pattern, ErrUnknownPattern)
	}
	s.Name = strings.TrimSpace(s.Name)
	s.InnerMS = clamp(s.InnerMS, 1, 9_999_999)
	s.RepeatMS = clamp(s.RepeatMS, 1, 9_999_999)
	s.Switch.Min = clamp(s.Switch.Min, 0, 180)
	s.Switch.Sec = clamp(s.Switch.Sec, 0, 59)
	s.Switch.Target = clamp(s.Switch.Target, 1, 999)
	s.JumpBack.Target = clamp(s.JumpBack.Target, 1, 999)
	s.Click.GlobalIntervalMS = clamp(s.Click.GlobalIntervalMS, 10, 9_999_999)
	if len(s.Click.Positions) > MaxPositions {
		s.Click.Positions = s.Click.Positions[:MaxPositions]
	}
	for i := range s.Click.Positions {
		p := &s.Click.Positions[i]
		p.X = clamp(p.X, -10_000_000, 10_000_000)
		p.Y = clamp(p.Y, -10_000_000, 10_000_000)
		p.IntervalMS = clamp(p.IntervalMS, 0, 9_999_999)
	}
	s.Movement.Pattern = pattern
	s.Movement.Size = clamp(s.Movement.Size, 1, 5000)
	s.Movement.Steps = clamp(s.Movement.Steps, 4, 3600)
	s.Movement.StepMS = clamp(s.Movement.StepMS, 1, 60_000)
	s.Movement.PathStepPx = math.Max(0.5, math.Min(500, s.Movement.PathStepPx))
	return nil
}

// UnmarshalJSON decodes a set leniently.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = decodeSet(asMap(raw))
	return nil
}

func decodeProfile(m map[string]any, fallbackName string) Profile {
	p := Profile{Name: asString(m["name"], fallbackName)}
	data := asMap(m["data"])
	if list, ok := data["sets"].([]any); ok {
		for _, it := range list {
			p.Sets = append(p.Sets, decodeSet(asMap(it)))
		}
	}
	if len(p.Sets) == 0 {
		p.Sets = []Set{NewSet()}
	}
	return p
}

type profileJSON struct {
	Name string `json:"name"`
	Data struct {
		Sets []Set `json:"sets"`
	} `json:"data"`
}

// MarshalJSON writes the profile as {"name", "data": {"sets": [...]}}.
func (p Profile) MarshalJSON() ([]byte, error) {
	var out profileJSON
	out.Name = p.Name
	out.Data.Sets = p.Sets
	if out.Data.Sets == nil {
		out.Data.Sets = []Set{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a profile leniently.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = decodeProfile(asMap(raw), DefaultProfilePrefix)
	return nil
}
