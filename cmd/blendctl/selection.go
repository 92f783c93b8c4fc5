package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/service"
)

// removal is the structured result of a delete.
type removal struct {
	Removed string `json:"removed" yaml:"removed"`
}

// overrideView is the structured result of override show/clear.
type overrideView struct {
	Level domain.LevelReference `json:"level,omitempty" yaml:"level,omitempty"`
	Set   bool                  `json:"set" yaml:"set"`
}

func newQueueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage levels scheduled for specific days",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List queued levels in calendar order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				entries, err := svc.ListQueue(cmd.Context())
				if err != nil {
					return err
				}
				if entries == nil {
					entries = []domain.ScheduledEntry{}
				}
				return a.render(entries, service.RenderQueue(entries))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <date> <level>",
		Short: "Schedule a level for a day (MM-DD), replacing any entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				entry, err := svc.Schedule(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return a.render(entry, fmt.Sprintf("Queued %s on %s.", entry.Ref, entry.Date))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <date>",
		Aliases: []string{"remove"},
		Short:   "Remove the level scheduled for a day",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				if err := svc.Unschedule(cmd.Context(), args[0]); err != nil {
					return err
				}
				date, _ := domain.ParseDateKey(args[0])
				return a.render(removal{Removed: date.String()}, fmt.Sprintf("Removed the entry for %s.", date))
			})
		},
	})

	return cmd
}

func newPoolCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Manage the random pool",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pool members in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				entries, err := svc.ListPool(cmd.Context())
				if err != nil {
					return err
				}
				if entries == nil {
					entries = []domain.PoolEntry{}
				}
				return a.render(entries, renderPoolWithIDs(entries))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <level>...",
		Short: "Add levels to the random pool",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				added := make([]domain.PoolEntry, 0, len(args))
				for _, raw := range args {
					entry, err := svc.AddToPool(cmd.Context(), raw)
					if err != nil {
						return fmt.Errorf("add %q: %w", raw, err)
					}
					added = append(added, entry)
				}
				return a.render(added, renderPoolWithIDs(added))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <entry-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a pool member by entry ID",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				if err := svc.RemoveFromPool(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.render(removal{Removed: args[0]}, fmt.Sprintf("Removed %s.", args[0]))
			})
		},
	})

	return cmd
}

// renderPoolWithIDs lists entries as "id  level" so they can be removed.
func renderPoolWithIDs(entries []domain.PoolEntry) string {
	if len(entries) == 0 {
		return service.RenderPool(entries)
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s  %s", e.ID, e.Ref))
	}
	return strings.Join(lines, "\n")
}

func newOverrideCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage the one-shot override for the next blend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <level>",
		Short: "Blend this level next, ahead of the queue and the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				ref, err := svc.SetOverride(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.render(overrideView{Level: ref, Set: true}, fmt.Sprintf("Override set to %s.", ref))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the pending override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				ref, ok, err := svc.Override(cmd.Context())
				if err != nil {
					return err
				}
				text := "No override set."
				if ok {
					text = "Override: " + ref.String()
				}
				return a.render(overrideView{Level: ref, Set: ok}, text)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop the pending override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				ref, ok, err := svc.ClearOverride(cmd.Context())
				if err != nil {
					return err
				}
				text := "No override was set."
				if ok {
					text = fmt.Sprintf("Cleared override %s.", ref)
				}
				return a.render(overrideView{Level: ref, Set: false}, text)
			})
		},
	})

	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <level>",
		Short: "Resolve a level and print its announcement without publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCommands(cmd, func(svc *service.CommandService) error {
				ann, err := svc.Preview(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.render(ann, ann.Text())
			})
		},
	}
}
