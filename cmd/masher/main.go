package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/buttonmasher/masher/internal/config"
	"github.com/buttonmasher/masher/internal/profile"
)

// cli holds state shared by every command of one invocation.
type cli struct {
	logLevel     string
	profilesPath string

	config *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "masher",
		Short: "Button Masher - scheduled key presses, clicks and pointer movement",
		Long: `Button Masher presses keys, clicks and moves the pointer on a schedule.

Work is organised into profiles. Each profile holds one or more sets; a set
lists the keys to press with their delays, optional clicks at captured screen
positions, optional pointer movement and the rules for moving on to another set.

Run "masher run" to start the hotkey daemon (F5 start, F6 stop, F7 capture a
click position, F8 next profile).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.profilesPath, "profiles", "", "profiles file (default "+profile.DefaultFileName+" in the config dir)")

	root.AddCommand(
		c.runCmd(),
		c.profilesCmd(),
		c.setsCmd(),
		c.positionsCmd(),
		c.previewCmd(),
		c.statsCmd(),
		c.configCmd(),
		c.versionCmd(),
	)
	return root
}

func (c *cli) setup() error {
	var err error
	c.config, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.profilesPath != "" {
		c.config.ProfilesPath = c.profilesPath
	}
	if c.logLevel != "" {
		c.config.LogLevel = c.logLevel
	}

	c.logger, err = newLogger(c.config.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level = strings.TrimSpace(level); level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// openStore loads the profiles file. A broken file is an error here so a
// command never overwrites it with defaults.
func (c *cli) openStore() (*profile.Store, error) {
	path, err := config.GetProfilesPath(c.config)
	if err != nil {
		return nil, err
	}
	store := profile.NewStore(path, c.logger)
	if err := store.LoadDefault(); err != nil {
		return nil, err
	}
	return store, nil
}

// edit applies fn to the profiles and saves them.
func (c *cli) edit(fn func(doc *profile.Document) error) (*profile.Store, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	if err := store.Update(fn); err != nil {
		return nil, err
	}
	if err := store.Save(); err != nil {
		return nil, err
	}
	return store, nil
}
