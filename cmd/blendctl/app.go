package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dailyblend/blender/internal/catalog"
	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/di/providers"
	"github.com/dailyblend/blender/internal/logger"
	"github.com/dailyblend/blender/internal/announce"
	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/validation"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// app carries the state shared by every subcommand.
type app struct {
	flags  *config.Flags
	output string
	out    io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "blendctl",
		Short: "Maintain the Daily Blend selection store",
		Long: `blendctl edits the override, the date queue and the random pool of the
Daily Blend bot directly in its store, previews announcements and issues
admin API tokens.`,
		SilenceUsage: true,
	}

	fs := flag.NewFlagSet("blendctl", flag.ContinueOnError)
	a.flags = config.RegisterFlags(fs)
	root.PersistentFlags().AddGoFlagSet(fs)
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputText, "Output format: text, json or yaml")
	root.SetOut(out)

	root.AddCommand(
		newQueueCmd(a),
		newPoolCmd(a),
		newOverrideCmd(a),
		newPreviewCmd(a),
		newTokenCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// config resolves the tool configuration once.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.LoadToolConfig(a.flags)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.logger = logger.New(logger.Config{
		Writer:      os.Stderr,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	}).Logger
	return cfg, nil
}

// withCommands opens the store, runs fn against a command service without a
// scheduler, and closes the store again.
func (a *app) withCommands(cmd *cobra.Command, fn func(*service.CommandService) error) (err error) {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	st, err := providers.OpenStore(cmd.Context(), cfg.Store, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, st.Close())
	}()

	client := catalog.New(a.logger, catalog.Options{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
	})
	defer client.Close()

	blend := service.NewBlendService(st, client, noPublisher{}, cfg.Blend.Location, a.logger)

	return fn(service.NewCommandService(st, blend, nil, validation.New(), a.logger))
}

// noPublisher stands in for the webhook; blendctl only previews.
type noPublisher struct{}

func (noPublisher) Publish(context.Context, *announce.Announcement) error {
	return errors.New("blendctl does not publish announcements")
}

// render writes v in the selected format; text mode prints the prepared line.
func (a *app) render(v any, text string) error {
	switch a.output {
	case outputText, "":
		_, err := fmt.Fprintln(a.out, text)
		return err
	case outputJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (must be text, json or yaml)", a.output)
	}
}
