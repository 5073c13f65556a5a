package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/md-navbar/pkg/batch"
	"github.com/Sriram-PR/md-navbar/pkg/config"
	navlog "github.com/Sriram-PR/md-navbar/pkg/log"
	"github.com/Sriram-PR/md-navbar/pkg/storage"
)

const (
	version           = "0.4.0"
	defaultConfigPath = "config.yaml"
	storeName         = "md-navbar"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "outline":
		runOutline(os.Args[2:])
	case "simulate":
		runSimulate(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "list-docs":
		runListDocs(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "version":
		fmt.Printf("md-navbar %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `md-navbar - Markdown outline and scroll-synced navigation

Usage:
  md-navbar <command> [options]

Commands:
  outline     Print the numbered outline of documents
  simulate    Drive the navigation engine over a headless page
  watch       Follow documents and replay changes to the engine
  validate    Validate configuration file
  list-docs   List configured document keys
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Run 'md-navbar <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// loadAndValidateConfig loads and validates the config file. A missing file at the default
// path is not an error: defaults apply and a warning is returned.
func loadAndValidateConfig(path string) (*config.AppConfig, []string, error) {
	var warnings []string
	appCfg, err := loadConfig(path)
	if err != nil {
		if path != defaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
		warnings = append(warnings, fmt.Sprintf("%s not found, using built-in defaults", path))
		appCfg = &config.AppConfig{}
	}
	appWarnings, _ := appCfg.Validate()
	return appCfg, append(warnings, appWarnings...), nil
}

// setupLogger creates a logger writing to w and tags it with the command name
func setupLogger(logLevelStr string, w io.Writer, command string) (*logrus.Logger, *logrus.Entry) {
	logger := navlog.New(logLevelStr, w)
	return logger, navlog.Component(logger, command)
}

// openStore opens the shared state store when enabled. The returned store is nil otherwise.
func openStore(ctx context.Context, appCfg *config.AppConfig, log *logrus.Entry) (*storage.BadgerStore, error) {
	if !appCfg.EnableStateStore {
		return nil, nil
	}
	store, err := storage.NewBadgerStore(ctx, appCfg.StateDir, storeName, true, log)
	if err != nil {
		return nil, err
	}
	go store.RunGC(ctx, appCfg.DBGCInterval)
	return store, nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// splitList splits a comma-separated flag value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	docKey := fs.String("doc", "", "Document key to validate (optional, validates all if empty)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: md-navbar validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, *docKey, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath, docKey string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, _ := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}

	keys := batch.DocumentKeys(appCfg)
	if docKey != "" {
		if _, ok := appCfg.Documents[docKey]; !ok {
			fmt.Fprintf(stderr, "Error: document '%s' not found in config\n", docKey)
			return 1
		}
		keys = []string{docKey}
	}

	hasError := false
	for _, key := range keys {
		docCfg := appCfg.Documents[key]
		docWarnings, err := docCfg.Validate()
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [%s] %v\n", key, err)
			hasError = true
			continue
		}
		for _, w := range docWarnings {
			fmt.Fprintf(stdout, "WARN: [%s] %s\n", key, w)
		}
		fmt.Fprintf(stdout, "OK: [%s]\n", key)
	}
	if hasError {
		return 1
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runListDocs handles the list-docs subcommand
func runListDocs(args []string) {
	fs := flag.NewFlagSet("list-docs", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: md-navbar list-docs [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doListDocs(*configFile, os.Stdout, os.Stderr))
}

// doListDocs lists documents and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doListDocs(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	appCfg.Validate()

	fmt.Fprintf(stdout, "Documents in %s:\n\n", configPath)
	for _, key := range batch.DocumentKeys(appCfg) {
		docCfg := appCfg.Documents[key]
		fmt.Fprintf(stdout, "  %s\n", key)
		fmt.Fprintf(stdout, "    Location: %s\n", docCfg.Location)
		format := docCfg.Format
		if format == "" {
			format = config.DetectFormat(docCfg.Location) + " (detected)"
		}
		fmt.Fprintf(stdout, "    Format: %s\n", format)
		fmt.Fprintf(stdout, "    Extractor: %s\n", config.GetEffectiveExtractor(docCfg, *appCfg))
		fmt.Fprintln(stdout)
	}
	return 0
}
