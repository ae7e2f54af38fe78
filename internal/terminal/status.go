package terminal

import (
	"fmt"
	"time"

	"github.com/buttonmasher/masher/internal/runner"
)

// StatusLines renders the current profile and its runner state.
func StatusLines(profileName string, index, total int, st runner.Status, capturing bool) []string {
	head := fmt.Sprintf("🎮 Profile %d/%d: %s", index+1, total, profileName)
	if !st.Running {
		line := "⏸  Stopped"
		if capturing {
			line = "🎯 Click to capture a position"
		}
		return []string{head, line}
	}

	elapsed := time.Since(st.StartedAt).Truncate(time.Second)
	state := fmt.Sprintf("▶️  Running %s on set %d (%s)", elapsed, st.SetIndex+1, st.SetName)
	if capturing {
		state += " 🎯 click to capture"
	}
	return []string{
		head,
		state,
		fmt.Sprintf("   %d keys, %d clicks, %d moves", st.Keys, st.Clicks, st.Moves),
	}
}
