package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Build info (set via ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "uiview",
	Short: "Preview run artifacts, Markdown and captured HTML safely in the browser",
	Long: `uiview serves /view/?p=<path>, a preview page for files published by a
static file server. Markdown is rendered with a restricted dialect, HTML runs
in a sandboxed frame, and everything else is shown as escaped text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig loads the config file and environment, applies flag overrides
// and validates the result.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	cfg, err := Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		cfg.Listen, _ = flags.GetString("listen")
	}
	if flags.Lookup("upstream") != nil && flags.Changed("upstream") {
		cfg.Upstream, _ = flags.GetString("upstream")
	}
	if flags.Lookup("no-live-reload") != nil && flags.Changed("no-live-reload") {
		off, _ := flags.GetBool("no-live-reload")
		cfg.LiveReload = !off
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		srv, err := newServer(cfg, verbose)
		if err != nil {
			return err
		}

		// Handle shutdown signals
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigint

			log.Println("Shutting down gracefully...")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("Server shutdown error: %v", err)
			}
		}()

		if err := srv.Start(); err != http.ErrServerClosed {
			srv.close()
			return err
		}
		return nil
	},
}

var (
	renderMode string
	renderOut  string
)

var renderCmd = &cobra.Command{
	Use:   "render <path>",
	Short: "Render one preview page and write it to stdout or a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		renderer, local, err := newPreviewRenderer(cfg, verbose)
		if err != nil {
			return err
		}
		defer local.close()

		q := url.Values{}
		q.Set("p", args[0])
		if renderMode != "" {
			q.Set("mode", renderMode)
		}
		current := &url.URL{Path: "/view/", RawQuery: q.Encode()}

		preview := renderer.Render(cmd.Context(), parseRequestParams(q))
		var modes []modeLink
		if preview.Kind != kindHint {
			modes = modeLinks(current, preview.Mode)
		}
		assets := newPageAssets(renderer.highlight, cfg.Markdown)
		data := assets.pageData(preview, modes, cfg.Theme, "", "")

		var out io.Writer = cmd.OutOrStdout()
		if renderOut != "" {
			f, err := os.Create(renderOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", renderOut, err)
			}
			defer f.Close()
			out = f
		}
		if err := writePage(out, data); err != nil {
			return fmt.Errorf("write page: %w", err)
		}
		if preview.Kind == kindHint {
			return fmt.Errorf("invalid path %q", args[0])
		}
		return nil
	},
}

var translateBase string

var translateCmd = &cobra.Command{
	Use:   "translate [file]",
	Short: "Translate Markdown from a file or stdin into an HTML fragment",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), translateMarkdown(string(data), translateBase))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		cmd.OutOrStdout().Write(out)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "uiview %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "uiview.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	serveCmd.Flags().String("listen", "", "address to listen on (overrides config)")
	serveCmd.Flags().String("upstream", "", "file server base URL (overrides config)")
	serveCmd.Flags().Bool("no-live-reload", false, "disable live reload")

	renderCmd.Flags().StringVar(&renderMode, "mode", "", "render, code or unsafe")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the page to this file")
	renderCmd.Flags().String("upstream", "", "file server base URL (overrides config)")

	translateCmd.Flags().StringVar(&translateBase, "base", "/", "base directory for relative references")

	rootCmd.AddCommand(serveCmd, renderCmd, translateCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
