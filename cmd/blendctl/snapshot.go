package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/service"
)

// snapshot is the portable form of the selection state. Pool entry IDs are
// not kept; importing assigns fresh ones.
type snapshot struct {
	Override domain.LevelReference   `json:"override,omitempty" yaml:"override,omitempty"`
	Queue    []domain.ScheduledEntry `json:"queue" yaml:"queue"`
	Pool     []domain.LevelReference `json:"pool" yaml:"pool"`
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the selection state as YAML (or JSON with -o json)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				ctx := cmd.Context()
				snap := snapshot{Queue: []domain.ScheduledEntry{}, Pool: []domain.LevelReference{}}

				override, _, err := svc.Override(ctx)
				if err != nil {
					return err
				}
				snap.Override = override

				queue, err := svc.ListQueue(ctx)
				if err != nil {
					return err
				}
				snap.Queue = append(snap.Queue, queue...)

				pool, err := svc.ListPool(ctx)
				if err != nil {
					return err
				}
				for _, e := range pool {
					snap.Pool = append(snap.Pool, e.Ref)
				}

				if a.output == outputText || a.output == "" {
					a.output = outputYAML
				}
				return a.render(snap, "")
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a YAML or JSON snapshot into the store",
		Long: `Import sets the snapshot's override, schedules its queue entries (replacing
entries on the same day) and appends its pool levels. Existing pool members
are kept, so importing twice duplicates them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			// YAML is a superset of JSON, so one decoder covers both.
			var snap snapshot
			if err := yaml.Unmarshal(raw, &snap); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			return a.withCommands(cmd, func(svc *service.CommandService) error {
				ctx := cmd.Context()
				if snap.Override != "" {
					if _, err := svc.SetOverride(ctx, snap.Override.String()); err != nil {
						return fmt.Errorf("override: %w", err)
					}
				}
				for _, e := range snap.Queue {
					if _, err := svc.Schedule(ctx, e.Date.String(), e.Ref.String()); err != nil {
						return fmt.Errorf("queue %s: %w", e.Date, err)
					}
				}
				for _, ref := range snap.Pool {
					if _, err := svc.AddToPool(ctx, ref.String()); err != nil {
						return fmt.Errorf("pool %s: %w", ref, err)
					}
				}

				summary := struct {
					Override bool `json:"override" yaml:"override"`
					Queue    int  `json:"queue" yaml:"queue"`
					Pool     int  `json:"pool" yaml:"pool"`
				}{snap.Override != "", len(snap.Queue), len(snap.Pool)}
				return a.render(summary, fmt.Sprintf("Imported %d queue entries and %d pool levels.", summary.Queue, summary.Pool))
			})
		},
	}
}
