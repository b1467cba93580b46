package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/registry"
	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/validation"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

var errFindings = errors.New("skeleton findings")

type options struct {
	dir     string
	glob    string
	url     string
	strict  bool
	json    bool
	verbose bool
	timeout time.Duration
}

func newRootCmd(out io.Writer) *cobra.Command {
	cfg := config.LoadOrDefault()
	opts := &options{
		dir:     cfg.Content.Dir,
		glob:    cfg.Content.Glob,
		url:     cfg.Content.URL,
		strict:  cfg.Content.Strict,
		timeout: 30 * time.Second,
	}

	cmd := &cobra.Command{
		Use:   "skeletonlint [dir]",
		Short: "Check exercise skeletons for leaked implementations",
		Long: `Loads exercise content from a directory (and optionally a remote bundle),
analyzes the skeleton of every exercise that has at least one assertion and
fails if any skeleton contains a working implementation of the pattern.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.dir = args[0]
			}
			cmd.SetOut(out)
			return run(cmd.Context(), out, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dir, "dir", opts.dir, "content directory")
	f.StringVar(&opts.glob, "glob", opts.glob, "content file glob, relative to the directory")
	f.StringVar(&opts.url, "url", opts.url, "remote JSON content bundle")
	f.BoolVar(&opts.strict, "strict", opts.strict, "fail on unreadable content files")
	f.BoolVar(&opts.json, "json", false, "print the full report as JSON")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log content loading")
	f.DurationVar(&opts.timeout, "timeout", opts.timeout, "remote bundle fetch timeout")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.Nop()
	if opts.verbose {
		log = logging.NewDevelopment()
	}

	exercises, err := load(ctx, opts, log)
	if err != nil {
		return err
	}

	report := validation.Validate(exercises, nil)
	if opts.json {
		data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return err
		}
	} else if err := report.Write(out); err != nil {
		return err
	}

	if report.Failed() {
		return errFindings
	}
	return nil
}

// load reads content through the registry so duplicate keys and unknown
// frameworks fail the lint the same way they fail server startup
func load(ctx context.Context, opts *options, log *logging.Logger) ([]*types.Exercise, error) {
	manager := registry.NewManager()
	if _, err := registry.NewSeeder(manager, opts.dir, opts.glob, opts.strict, log).Seed(); err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	if opts.url != "" {
		remoteCfg := registry.DefaultRemoteConfig(opts.url)
		remoteCfg.Timeout = opts.timeout
		if _, err := registry.NewRemote(remoteCfg, log).Sync(ctx, manager); err != nil {
			return nil, fmt.Errorf("load remote content: %w", err)
		}
	}
	return manager.All(), nil
}
