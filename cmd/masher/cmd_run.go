package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buttonmasher/masher/internal/app"
	"github.com/buttonmasher/masher/internal/input/robot"
)

func (c *cli) runCmd() *cobra.Command {
	var (
		profileName string
		start       bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the hotkey daemon",
		Long: `Starts the daemon that listens for the global hotkeys and runs the
current profile. Changes made to the profiles file while it runs are picked
up on the next cycle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			daemon := app.NewDaemon(app.Options{
				Config: c.config,
				Logger: c.logger,
				Driver: robot.New(),
			})
			if err := daemon.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize daemon: %w", err)
			}
			if profileName != "" {
				if err := daemon.SelectProfile(profileName); err != nil {
					return err
				}
			}
			if start {
				daemon.OnStart()
			}
			return daemon.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to make current (name or number)")
	cmd.Flags().BoolVar(&start, "start", false, "start the current profile right away")
	return cmd
}
