package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Sriram-PR/md-navbar/pkg/mcp"
	"github.com/Sriram-PR/md-navbar/pkg/storage"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigPath, "Path to config file")
	transport := fs.String("transport", "stdio", "Transport type (stdio, sse)")
	port := fs.Int("port", 8080, "HTTP port (for sse transport)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: md-navbar mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport (for Claude Desktop)
  md-navbar mcp-server -config config.yaml

  # Start with SSE transport on port 8080
  md-navbar mcp-server -config config.yaml -transport sse -port 8080

Available MCP Tools:
  list_documents          List configured documents and their last fragment
  extract_outline         Extract the numbered outline of markdown, a file or a URL
  open_session            Open a headless navigation session on a document
  scroll_session          Scroll a session page
  click_session           Click a navigation item
  navigate_session        Change a session's URL fragment
  replace_session_source  Swap a session's markdown source
  get_session             Show a session's current state
  close_session           Close a session
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doMcpServer(*configFile, *transport, *port, *logLevel, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doMcpServer is the testable implementation of the MCP server
func doMcpServer(configPath, transport string, port int, logLevel string, stdout, stderr io.Writer) int {
	if transport != "stdio" && transport != "sse" {
		fmt.Fprintf(stderr, "Unsupported transport: %s (use stdio or sse)\n", transport)
		return 1
	}

	// MCP protocol uses stdout, logs go to stderr
	logger, log := setupLogger(logLevel, stderr, "mcp-server")

	appCfg, warnings, err := loadAndValidateConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signalContext()
	defer stop()

	serverCfg := &mcp.ServerConfig{
		AppConfig:  appCfg,
		ConfigPath: configPath,
		Transport:  transport,
		Port:       port,
		Logger:     logger,
	}

	var store *storage.BadgerStore
	store, err = openStore(ctx, appCfg, log)
	if err != nil {
		log.Warnf("State store unavailable, sessions will not be persisted: %v", err)
	}
	if store != nil {
		defer store.Close()
		serverCfg.Store = store
	}

	server, err := mcp.NewServer(serverCfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Infof("Starting MCP server (transport: %s)", transport)

	if err := server.Run(); err != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}

	return 0
}
