package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buttonmasher/masher/internal/config"
	"github.com/buttonmasher/masher/internal/metrics"
	"github.com/buttonmasher/masher/internal/movement"
	"github.com/buttonmasher/masher/internal/profile"
	"github.com/buttonmasher/masher/internal/version"
)

func (c *cli) previewCmd() *cobra.Command {
	m := profile.NewSet().Movement
	cmd := &cobra.Command{
		Use:   "preview PATTERN",
		Short: "Print the pointer offsets of a movement pattern",
		Long: `Prints one "dx,dy" offset per line for circle, square or figure8,
relative to where the pointer is when movement starts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := profile.NewSet()
			s.Movement = m
			s.Movement.Pattern = args[0]
			if err := s.Normalize(); err != nil {
				return err
			}
			if s.Movement.Pattern == profile.PatternPath {
				return fmt.Errorf("the path pattern is drawn per set; preview circle, square or figure8")
			}
			for _, off := range movement.Offsets(s.Movement) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d,%d\n", off.DX, off.DY)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&m.Size, "size", m.Size, "pattern size in px")
	cmd.Flags().IntVar(&m.Steps, "steps", m.Steps, "points per loop")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show run statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metricsDir, err := config.GetMetricsDir()
			if err != nil {
				return fmt.Errorf("failed to get metrics directory: %w", err)
			}
			metricsManager, err := metrics.NewMetricsManager(metricsDir)
			if err != nil {
				return fmt.Errorf("failed to initialize metrics: %w", err)
			}
			out := cmd.OutOrStdout()

			if reset {
				if err := metricsManager.ClearAllMetrics(); err != nil {
					return fmt.Errorf("failed to clear metrics: %w", err)
				}
				fmt.Fprintln(out, "🗑️  All run statistics have been cleared")
				return nil
			}

			totalMetrics, err := metricsManager.GetTotalMetrics()
			if err != nil {
				return fmt.Errorf("failed to get total metrics: %w", err)
			}
			recentDays, err := metricsManager.GetRecentDays(7)
			if err != nil {
				c.logger.Warn("Failed to get recent metrics", zap.Error(err))
			}

			formatter := metrics.NewStatsFormatter()
			fmt.Fprintln(out, formatter.FormatTotalStats(totalMetrics))
			if totalMetrics.TotalSessions > 0 && len(recentDays) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, formatter.FormatWeeklyStats(recentDays))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "clear all run statistics")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the config file location and effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			configPath, err := config.GetConfigPath()
			if err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				fmt.Fprintf(out, "📝 Config file does not exist yet (%s)\n", configPath)
			} else {
				fmt.Fprintf(out, "📁 Config file location: %s\n", configPath)
			}

			profilesPath, err := config.GetProfilesPath(c.config)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "🎮 Profiles file: %s\n", profilesPath)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "📋 Effective settings:")

			data, err := json.MarshalIndent(c.config, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := config.GetConfigPath()
			if err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}
			if err := config.SaveConfig(config.Default()); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Config written to %s\n", configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	cmd.AddCommand(show, initCmd)
	return cmd
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Button Masher %s\n", version.VERSION)
		},
	}
}
