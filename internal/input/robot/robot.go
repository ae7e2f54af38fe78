// Package robot drives the real desktop through robotgo.
package robot

import (
	"github.com/go-vgo/robotgo"

	"github.com/buttonmasher/masher/internal/input"
)

// Driver implements input.Driver with robotgo.
type Driver struct{}

var _ input.Driver = Driver{}

func New() Driver {
	return Driver{}
}

func (Driver) KeyTap(key string) error {
	return robotgo.KeyTap(key)
}

func (Driver) Move(x, y int) {
	robotgo.Move(x, y)
}

func (Driver) Click() {
	robotgo.Click("left")
}

func (Driver) Location() (int, int) {
	return robotgo.Location()
}
