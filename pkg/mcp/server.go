package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/md-navbar/pkg/batch"
	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/source"
	"github.com/Sriram-PR/md-navbar/pkg/storage"
)

const (
	serverName    = "md-navbar"
	serverVersion = "1.0.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig
	ConfigPath string
	Transport  string // "stdio" or "sse"
	Port       int
	Logger     *logrus.Logger
	Store      storage.Store // Optional; enables outline caching and hash persistence
}

// Server exposes outline extraction and navigation sessions as MCP tools
type Server struct {
	mcpServer *server.MCPServer
	sse       *server.SSEServer
	cfg       *ServerConfig
	log       *logrus.Entry
	loader    *source.Loader
	runner    *batch.Runner
	sessions  *SessionManager
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	log := cfg.Logger.WithField("component", "mcp")

	loader := source.NewLoader(*cfg.AppConfig, log)
	var cache storage.OutlineCache
	if cfg.Store != nil {
		cache = cfg.Store
	}

	s := &Server{
		mcpServer: server.NewMCPServer(serverName, serverVersion, server.WithLogging()),
		cfg:       cfg,
		log:       log,
		loader:    loader,
		runner:    batch.NewRunner(cfg.AppConfig, loader, cache, log),
		sessions:  NewSessionManager(),
	}
	if cfg.Transport == "sse" {
		s.sse = server.NewSSEServer(s.mcpServer)
	}
	s.registerTools()
	return s, nil
}

func sourceParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("markdown", mcp.Description("Markdown source text. Takes precedence over location and doc_key")),
		mcp.WithString("location", mcp.Description("Local file path or http(s) URL of the document")),
		mcp.WithString("doc_key", mcp.Description("Document key from the config file")),
	}
}

func sessionIDParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id returned by open_session"))
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	tools := []server.ServerTool{
		{
			Tool: mcp.NewTool("list_documents",
				mcp.WithDescription("List the documents configured in the config file"),
			),
			Handler: s.handleListDocuments,
		},
		{
			Tool: mcp.NewTool("extract_outline", append(sourceParams(),
				mcp.WithDescription("Extract the numbered heading outline of a markdown document"),
				mcp.WithString("extractor", mcp.Description("Outline extractor: 'pattern' (default) or 'goldmark'")),
			)...),
			Handler: s.handleExtractOutline,
		},
		{
			Tool: mcp.NewTool("open_session", append(sourceParams(),
				mcp.WithDescription("Open a headless navigation session: the document is rendered, the navbar is mounted and the first heading (or the one named by hash) becomes active"),
				mcp.WithString("hash", mcp.Description("Initial URL fragment, e.g. '#heading-3'")),
				mcp.WithBoolean("declarative", mcp.Description("Use '<listNo>-<text>' heading ids")),
				mcp.WithBoolean("hash_mode", mcp.Description("Allow the navbar to write the URL fragment")),
				mcp.WithBoolean("update_hash_auto", mcp.Description("Write the fragment while scrolling (needs hash_mode)")),
				mcp.WithNumber("heading_top_offset", mcp.Description("Pixel correction for fixed headers")),
			)...),
			Handler: s.handleOpenSession,
		},
		{
			Tool: mcp.NewTool("scroll_session",
				mcp.WithDescription("Scroll the session page to a vertical offset and return the settled navbar state"),
				sessionIDParam(),
				mcp.WithNumber("top", mcp.Required(), mcp.Description("Scroll offset in pixels")),
			),
			Handler: s.handleScrollSession,
		},
		{
			Tool: mcp.NewTool("click_session",
				mcp.WithDescription("Click a navigation item"),
				sessionIDParam(),
				mcp.WithString("heading_id", mcp.Required(), mcp.Description("Heading id as listed in the session items")),
			),
			Handler: s.handleClickSession,
		},
		{
			Tool: mcp.NewTool("navigate_session",
				mcp.WithDescription("Change the session URL fragment as a link or the back button would"),
				sessionIDParam(),
				mcp.WithString("hash", mcp.Required(), mcp.Description("New fragment, e.g. '#heading-2'")),
			),
			Handler: s.handleNavigateSession,
		},
		{
			Tool: mcp.NewTool("replace_session_source",
				mcp.WithDescription("Replace the markdown source of a session; the outline is re-extracted"),
				sessionIDParam(),
				mcp.WithString("markdown", mcp.Required(), mcp.Description("New markdown source")),
			),
			Handler: s.handleReplaceSessionSource,
		},
		{
			Tool: mcp.NewTool("get_session",
				mcp.WithDescription("Get the current state of a navigation session"),
				sessionIDParam(),
			),
			Handler: s.handleGetSession,
		},
		{
			Tool: mcp.NewTool("close_session",
				mcp.WithDescription("Close a navigation session"),
				sessionIDParam(),
			),
			Handler: s.handleCloseSession,
		},
	}
	s.mcpServer.AddTools(tools...)
	s.log.Infof("Registered %d MCP tools", len(tools))
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		if err := s.sse.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown closes every open session and stops the SSE listener, if any
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.sessions.CloseAll()
	if s.sse != nil {
		return s.sse.Shutdown(ctx)
	}
	return nil
}
