// Package cmd provides CLI commands for bizbook.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bizbook/pkg/config"
	"github.com/shunichi-ikebuchi/bizbook/pkg/pathutil"
	"github.com/shunichi-ikebuchi/bizbook/pkg/session"
)

var (
	cfgFile string
	debug   bool
	backend string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bizbook",
	Short: "Manage the business records of a book",
	Long: `bizbook keeps distribution lists, co-owners, customers, employees,
vendors and jobs of a book in XML, SQLite or bbolt storage.

It supports:
- Importing records from a YAML seed file
- Converting a book between storage backends
- Repairing distribution list chains and refcounts
- Listing distribution lists and record statistics

Example:
  bizbook import seed.yaml
  bizbook convert --to sqlite
  bizbook stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func setupLogging() {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend: xml, sqlite or bolt (default from BIZBOOK_BACKEND)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(scrubCmd)
	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig reads the configuration and applies the --backend override.
func loadConfig() (*config.Config, *pathutil.PathResolver) {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")
	if cfg.Debug && !debug {
		debug = true
		setupLogging()
	}
	if backend != "" {
		cfg.Book.Backend = backend
	}

	err = cfg.Validate("book.root", "book.backend")
	exitOnError(err, "invalid configuration")

	resolver := pathutil.New(pathutil.Config{
		Root:         cfg.Book.Root,
		XMLPath:      cfg.Book.XMLPath,
		DatabasePath: cfg.Book.DBPath,
		BoltPath:     cfg.Book.BoltPath,
	})
	return cfg, resolver
}

// openSession opens the configured book. With create set a missing book is
// started empty, otherwise it is an error.
func openSession(kind string, resolver *pathutil.PathResolver, create bool) *session.Session {
	path, err := resolver.GetBackendPath(kind)
	exitOnError(err, "failed to resolve book path")
	exitOnError(resolver.EnsureParentDir(path), "failed to create book directory")

	s, err := session.Open(kind, path)
	exitOnError(err, "failed to open book")

	if s.Exists() || kind != config.BackendXML {
		slog.Debug("Loading book", "backend", kind, "path", path)
		_, err = s.Load()
		exitOnError(err, "failed to load book")
		return s
	}
	if !create {
		exitOnError(fmt.Errorf("%s does not exist", path), "failed to load book")
	}
	slog.Info("Creating new book", "path", path)
	_, err = s.Create()
	exitOnError(err, "failed to create book")
	return s
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
