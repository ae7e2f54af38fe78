package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UISettings is carried through load/save untouched so files stay
// interchangeable with the desktop edition.
type UISettings struct {
	Theme string `json:"theme,omitempty"`
	Lang  string `json:"lang,omitempty"`
}

// Document is the whole profiles file.
type Document struct {
	WindowSize        *WindowSize `json:"window_size,omitempty"`
	UI                UISettings  `json:"ui"`
	LastActiveProfile int         `json:"last_active_profile"`
	LastFilePath      string      `json:"last_file_path,omitempty"`
	Profiles          []Profile   `json:"profiles"`
}

// NewDocument returns the document used when nothing has been saved yet.
func NewDocument() *Document {
	return &Document{
		UI:       UISettings{Theme: "light"},
		Profiles: []Profile{NewProfile(DefaultProfilePrefix + " 1")},
	}
}

// UnmarshalJSON decodes leniently. A document without profiles keeps an
// empty list so callers can tell an empty import apart; Normalize fills it.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m := asMap(raw)

	*d = Document{}
	if ws := asMap(m["window_size"]); len(ws) > 0 {
		d.WindowSize = &WindowSize{
			Width:  clampInt(ws["width"], 0, 100_000, 0),
			Height: clampInt(ws["height"], 0, 100_000, 0),
		}
	}
	ui := asMap(m["ui"])
	d.UI.Theme = asString(ui["theme"], "light")
	d.UI.Lang = asString(ui["lang"], "")
	d.LastActiveProfile = clampInt(m["last_active_profile"], 0, 1_000_000, 0)
	d.LastFilePath = asString(m["last_file_path"], "")

	if list, ok := m["profiles"].([]any); ok {
		for _, it := range list {
			pm, ok := it.(map[string]any)
			if !ok {
				continue
			}
			d.Profiles = append(d.Profiles, decodeProfile(pm, DefaultProfilePrefix))
		}
	}
	return nil
}

// Normalize guarantees at least one profile and an in-range active index.
func (d *Document) Normalize() {
	if len(d.Profiles) == 0 {
		d.Profiles = []Profile{NewProfile(DefaultProfilePrefix + " 1")}
	}
	d.LastActiveProfile = max(0, min(d.LastActiveProfile, len(d.Profiles)-1))
}

// ActiveProfile returns the index of the last active profile, clamped.
func (d *Document) ActiveProfile() int {
	if len(d.Profiles) == 0 {
		return 0
	}
	return max(0, min(d.LastActiveProfile, len(d.Profiles)-1))
}

// Find returns the index of the profile called name. A 1-based number is
// accepted as well.
func (d *Document) Find(name string) (int, error) {
	for i, p := range d.Profiles {
		if p.Name == name {
			return i, nil
		}
	}
	for i, p := range d.Profiles {
		if strings.EqualFold(p.Name, name) {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= len(d.Profiles) {
		return n - 1, nil
	}
	return -1, fmt.Errorf("profile %q: %w", name, ErrNotFound)
}

// Key identifies a profile across reloads: its name and the number of
// earlier profiles sharing that name.
type Key struct {
	Name string
	Nth  int
}

// Keys returns the key of every profile, in order.
func (d *Document) Keys() []Key {
	seen := make(map[string]int, len(d.Profiles))
	keys := make([]Key, len(d.Profiles))
	for i, p := range d.Profiles {
		keys[i] = Key{Name: p.Name, Nth: seen[p.Name]}
		seen[p.Name]++
	}
	return keys
}

// Locate returns the index of the profile with key k.
func (d *Document) Locate(k Key) (int, bool) {
	n := 0
	for i, p := range d.Profiles {
		if p.Name != k.Name {
			continue
		}
		if n == k.Nth {
			return i, true
		}
		n++
	}
	return -1, false
}

// AutoProfileName returns the first unused "Profile N" title.
func (d *Document) AutoProfileName() string {
	titles := make([]string, len(d.Profiles))
	for i, p := range d.Profiles {
		titles[i] = p.Name
	}
	return nextFreeName(DefaultProfilePrefix, titles)
}

// AddProfile appends a profile with one default set and returns its index.
// An empty name picks the next free default title.
func (d *Document) AddProfile(name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		name = d.AutoProfileName()
	}
	d.Profiles = append(d.Profiles, NewProfile(name))
	return len(d.Profiles) - 1
}

func (d *Document) DeleteProfile(i int) error {
	if i < 0 || i >= len(d.Profiles) {
		return fmt.Errorf("profile %d: %w", i+1, ErrNotFound)
	}
	if len(d.Profiles) == 1 {
		return ErrLastProfile
	}
	d.Profiles = append(d.Profiles[:i], d.Profiles[i+1:]...)
	if d.LastActiveProfile >= len(d.Profiles) {
		d.LastActiveProfile = len(d.Profiles) - 1
	}
	return nil
}

func (d *Document) RenameProfile(i int, name string) error {
	if i < 0 || i >= len(d.Profiles) {
		return fmt.Errorf("profile %d: %w", i+1, ErrNotFound)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	d.Profiles[i].Name = name
	return nil
}

// Clone returns a deep copy, so runners can hold a snapshot while the
// document keeps changing.
func (d *Document) Clone() *Document {
	out := *d
	if d.WindowSize != nil {
		ws := *d.WindowSize
		out.WindowSize = &ws
	}
	out.Profiles = make([]Profile, len(d.Profiles))
	for i, p := range d.Profiles {
		out.Profiles[i] = p.Clone()
	}
	return &out
}

func (p Profile) Clone() Profile {
	out := Profile{Name: p.Name, Sets: make([]Set, len(p.Sets))}
	for i, s := range p.Sets {
		s.Click.Positions = append([]ClickPosition(nil), s.Click.Positions...)
		s.Movement.Path = append([]Point(nil), s.Movement.Path...)
		out.Sets[i] = s
	}
	return out
}
