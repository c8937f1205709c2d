package main

import (
	"fmt"
	"net"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wigchat/internal/api"
	"wigchat/internal/backend"
	"wigchat/internal/config"
	"wigchat/internal/logger"
	"wigchat/internal/tui"
)

const version = "1.0.0"

var (
	flagBaseURL string
	flagConfig  string
	flagDebug   bool
	flagDemo    bool
	serveAddr   string
)

func main() {
	// A .env next to the binary or in the working directory can set
	// WIGCHAT_* variables; absence is not an error.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "wigchat",
		Short:   "wigchat - terminal chat client",
		Long:    "wigchat is a terminal client for a session-based chat backend.\n\nRun without arguments to open the chat interface. Run `wigchat serve` to start the built-in demo backend it can talk to.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.LogFile, cfg.Debug || flagDebug)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			if flagDemo {
				url, err := startDemoBackend(log)
				if err != nil {
					return fmt.Errorf("start demo backend: %w", err)
				}
				cfg.BaseURL = url
			}
			log.Info("starting", zap.String("base_url", cfg.BaseURL), zap.String("version", version))

			client := api.New(cfg.BaseURL, log)
			model := tui.Build(client, tui.NewTheme(cfg.Theme), log)

			p := tea.NewProgram(model)
			if _, err := p.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default "+config.DefaultPath()+")")
	root.Flags().StringVar(&flagBaseURL, "base-url", "", "backend base URL (overrides config and WIGCHAT_BASE_URL)")
	root.Flags().BoolVar(&flagDemo, "demo", false, "run against a throwaway in-process backend")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the built-in demo backend",
		Long:  "Run an in-memory chat backend implementing the wigchat wire contract.\n\nState lives in memory only; restarting the server starts a fresh history.\n\nExamples:\n  - wigchat serve\n  - wigchat serve --addr :8080",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogFile, cfg.Debug || flagDebug)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			srv := backend.NewServer(log)
			fmt.Printf("wigchat demo backend listening on %s\n", serveAddr)
			return http.ListenAndServe(serveAddr, srv.Handler())
		},
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:5000", "listen address")
	root.AddCommand(serveCmd)

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(os.Stdout)
			case "zsh":
				return root.GenZshCompletion(os.Stdout)
			case "fish":
				return root.GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	root.AddCommand(completionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// startDemoBackend serves the in-memory backend on a loopback port picked
// by the OS and returns its base URL. It lives as long as the process.
func startDemoBackend(log *zap.Logger) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	srv := backend.NewServer(log)
	go func() {
		if err := http.Serve(ln, srv.Handler()); err != nil {
			log.Error("demo backend stopped", zap.Error(err))
		}
	}()
	return "http://" + ln.Addr().String(), nil
}

func loadConfig() (config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	return cfg, nil
}
