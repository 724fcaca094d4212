package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/d00mkeeps/ibhackathon/config"
	"github.com/d00mkeeps/ibhackathon/pkg/logger"
)

const version = "0.3.0"

// rootOptions carries the flag values and the loaded config to subcommands.
type rootOptions struct {
	configPath string
	debug      bool
	logFormat  string

	manager *config.Manager
	cfg     *config.Config
	log     *logrus.Entry
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cara",
		Short: "CARA - conversational company analysis backend",
		Long: `CARA serves a streaming investment-analysis assistant over WebSocket.
Each conversation is grounded in a company, a comparison dataset and live web search.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts, chatOptions{}, cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newChatCmd(opts))
	rootCmd.AddCommand(newDatasetCmd(opts))
	rootCmd.AddCommand(newConversationsCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	return rootCmd
}

// load reads the config file, seeding it from the environment on first run.
func (o *rootOptions) load() error {
	managerOpts := []config.ManagerOption{config.WithInitialConfig(config.DefaultConfig())}
	if o.configPath != "" {
		managerOpts = append(managerOpts, config.WithConfigPath(o.configPath))
	}
	mgr, err := config.NewManager(managerOpts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg := mgr.Get()
	if o.debug {
		cfg.Debug = true
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	logger.Setup(&cfg)

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	o.manager = mgr
	o.cfg = &cfg
	o.log = logger.Component("cli")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cara v%s\n", version)
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), opts.cfg, opts.manager.Path())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), opts.cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting in the config file",
		Long: `Change one setting in the config file. A running server picks the change up
without a restart, except for database settings. List values are comma separated.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setConfigValue(opts.manager, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", completedStyle.Render("✓"), args[0], args[1])
			return nil
		},
	})

	return configCmd
}

// setConfigValue replaces one JSON key of the current config and saves it
// through the manager, which validates the result.
func setConfigValue(mgr *config.Manager, key, value string) error {
	raw, err := json.Marshal(mgr.Get())
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	current, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	var next []byte
	switch {
	case len(current) > 0 && current[0] == '"':
		next, err = json.Marshal(value)
	case len(current) > 0 && current[0] == '[', string(current) == "null":
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		next, err = json.Marshal(items)
	default:
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("invalid value for %s: %q", key, value)
		}
		next = []byte(value)
	}
	if err != nil {
		return err
	}
	fields[key] = next

	updated, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := mgr.UpdateFromJSON(string(updated)); err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	return nil
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, headerStyle.Render("CARA configuration"))
	renderKV(w, "Config file", path)
	renderKV(w, "Data directory", cfg.DataDir)
	renderKV(w, "Listen address", cfg.ListenAddr)
	renderKV(w, "Allowed origins", fmt.Sprint(cfg.AllowedOrigins))
	renderKV(w, "Database", cfg.DatabaseDriver+" "+cfg.DatabaseURL)
	fmt.Fprintln(w)
	renderKV(w, "LLM provider", cfg.LLMProvider)
	renderKV(w, "LLM model", cfg.LLMModel)
	renderKV(w, "LLM max tokens", strconv.Itoa(cfg.LLMMaxTokens))
	renderKV(w, "LLM API key", configured(cfg.LLMAPIKey() != ""))
	renderKV(w, "Search provider", cfg.SearchProvider)
	renderKV(w, "Serper API key", configured(cfg.SerperAPIKey != ""))
	renderKV(w, "Online quotes", strconv.FormatBool(cfg.OnlineQuotes))
	fmt.Fprintln(w)
	renderKV(w, "Dataset source", cfg.DatasetSource)
	renderKV(w, "Dataset as of", cfg.DatasetAsOf)
	renderKV(w, "Debug", strconv.FormatBool(cfg.Debug))
	renderKV(w, "Eino debug", strconv.FormatBool(cfg.EinoDebugEnabled))
	if cfg.EinoDebugEnabled {
		renderKV(w, "Eino debug URL", fmt.Sprintf("http://localhost:%d", cfg.EinoDebugPort))
	}
}

func validateConfig(w io.Writer, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w, errorStyle.Render("invalid: "+err.Error()))
		return err
	}
	var warnings []string
	if err := cfg.RequireCredentials(); err != nil {
		if !errors.Is(err, config.ErrConfiguration) {
			return err
		}
		warnings = append(warnings, err.Error())
	}
	if cfg.SearchProvider == config.SearchSerper && cfg.SerperAPIKey == "" {
		warnings = append(warnings, "SERPER_KEY not set, web search will be disabled")
	}

	for _, msg := range warnings {
		fmt.Fprintln(w, warningStyle.Render("warning: "+msg))
	}
	if len(warnings) == 0 {
		fmt.Fprintln(w, completedStyle.Render("Configuration is valid."))
	} else {
		fmt.Fprintf(w, "Configuration is valid with %d warnings.\n", len(warnings))
	}
	return nil
}
