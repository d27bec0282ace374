// a11yscan audits rendered web pages for accessibility defects,
// attributes each defect to the owning UI component, and exercises the
// page's keyboard-only interaction surface.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/config"
	"github.com/justinleeirizarry/a11y-scanner-sub000/internal/scan"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "a11yscan",
		Short:         "Accessibility scanner with component attribution and keyboard auditing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(scanCmd())
	return root
}

func scanCmd() *cobra.Command {
	var (
		configPath    string
		engine        string
		headless      bool
		keyboardOn    bool
		requireReact  bool
		tags          []string
		maxRetries    int
		failThreshold int
		axePath       string
		timeout       time.Duration
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Scan one or more URLs sequentially",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags beat env beats file.
			if cmd.Flags().Changed("engine") {
				cfg.Engine = engine
			}
			if cmd.Flags().Changed("headless") {
				cfg.Headless = &headless
			}
			if cmd.Flags().Changed("keyboard") {
				cfg.Keyboard.Enabled = keyboardOn
			}
			if cmd.Flags().Changed("require-react") {
				cfg.RequireReact = requireReact
			}
			if cmd.Flags().Changed("tags") {
				cfg.Tags = tags
			}
			if cmd.Flags().Changed("max-retries") {
				cfg.MaxRetries = maxRetries
			}
			if cmd.Flags().Changed("fail-threshold") {
				cfg.FailThreshold = &failThreshold
			}
			if cmd.Flags().Changed("axe") {
				cfg.AxePath = axePath
			}

			urls := args
			if len(urls) == 0 {
				urls = cfg.Targets
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given (positional args or urls: in the config file)")
			}

			opts, err := cfg.ScanOptions()
			if err != nil {
				return err
			}

			var axeSource string
			if cfg.AxePath != "" {
				data, err := os.ReadFile(cfg.AxePath)
				if err != nil {
					return fmt.Errorf("read axe source: %w", err)
				}
				axeSource = string(data)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			results, errs := scan.RunBatch(ctx, urls, opts, scan.Default(axeSource))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for _, res := range results {
				if err := enc.Encode(res); err != nil {
					return err
				}
			}

			ciFailed := false
			for _, res := range results {
				if res.CI != nil && !res.CI.Passed {
					ciFailed = true
					slog.Error("violation ceiling exceeded",
						"url", res.URL, "violations", res.CI.Violations, "threshold", res.CI.Threshold)
				}
			}

			if len(errs) > 0 {
				for _, serr := range errs {
					slog.Error("scan failed", "err", serr)
				}
				return fmt.Errorf("%d of %d scans failed", len(errs), len(urls))
			}
			if ciFailed {
				return fmt.Errorf("violations exceed the configured threshold")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&engine, "engine", "chromium", "browser engine: chromium, firefox, webkit")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	cmd.Flags().BoolVar(&keyboardOn, "keyboard", false, "run the keyboard interaction audit")
	cmd.Flags().BoolVar(&requireReact, "require-react", false, "fail if no React runtime is detected")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "restrict checker rules to these tags")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "checker attempt budget")
	cmd.Flags().IntVar(&failThreshold, "fail-threshold", 0, "CI mode: fail when violations exceed this count")
	cmd.Flags().StringVar(&axePath, "axe", "", "path to an axe-core build to inject")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline for the whole batch")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
