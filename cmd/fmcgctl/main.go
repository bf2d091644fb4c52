package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fmcg-dashboard/internal/engine"
	"fmcg-dashboard/internal/logger"
	"fmcg-dashboard/internal/report"
	"fmcg-dashboard/internal/source"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fmcgctl",
		Short:         "Explore FMCG daily sales from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newReportCmd())
	return root
}

type reportOptions struct {
	skus       []string
	categories []string
	years      []int
	strict     bool
	verbose    bool
	region     string
	profile    string
}

func newReportCmd() *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report <source>",
		Short: "Print key metrics, category totals and correlations for a selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.skus, "sku", nil, "keep only these SKUs")
	f.StringSliceVar(&opts.categories, "category", nil, "keep only these categories")
	f.IntSliceVar(&opts.years, "year", nil, "keep only these years")
	f.BoolVar(&opts.strict, "strict", false, "fail on negative units/prices or promotion flags other than 0/1")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log loader progress to stderr")
	f.StringVar(&opts.region, "aws-region", os.Getenv("AWS_REGION"), "AWS region for s3:// sources")
	f.StringVar(&opts.profile, "aws-profile", os.Getenv("AWS_PROFILE"), "AWS shared config profile for s3:// sources")
	return cmd
}

func runReport(ctx context.Context, cmd *cobra.Command, uri string, opts *reportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log := zap.NewNop()
	if opts.verbose {
		var err error
		if log, err = logger.New("debug"); err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	opener := source.NewOpener(source.S3Config{Region: opts.region, Profile: opts.profile})
	loader := engine.NewLoader(opener, engine.WithStrict(opts.strict), engine.WithLogger(logger.Named(log, "engine.loader")))

	ds, err := loader.Load(ctx, uri)
	if err != nil {
		return err
	}

	fd := engine.Apply(ds, engine.NewSelection(opts.skus, opts.categories, opts.years))
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source: %s (%d of %d records)\n\n", ds.Source, fd.Len(), ds.Len())
	dash, err := fd.Aggregate()
	if err != nil {
		return err
	}
	return report.Write(out, dash)
}
