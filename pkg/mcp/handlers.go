package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Sriram-PR/md-navbar/pkg/batch"
	"github.com/Sriram-PR/md-navbar/pkg/config"
	"github.com/Sriram-PR/md-navbar/pkg/models"
	"github.com/Sriram-PR/md-navbar/pkg/outline"
	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

const inlineDocKey = "inline"

// resolvedSource is a document ready for extraction or a session
type resolvedSource struct {
	key      string
	location string
	markdown string
	docCfg   config.DocumentConfig
}

// resolveSource reads markdown, doc_key or location from the request, in that order
func (s *Server) resolveSource(ctx context.Context, request mcp.CallToolRequest) (*resolvedSource, error) {
	docKey := request.GetString("doc_key", "")
	if markdown := request.GetString("markdown", ""); markdown != "" {
		if docKey == "" {
			docKey = inlineDocKey
		}
		return &resolvedSource{key: docKey, markdown: markdown}, nil
	}

	if docKey != "" {
		docCfg, exists := s.cfg.AppConfig.Documents[docKey]
		if !exists {
			return nil, fmt.Errorf("document '%s' not found. Available documents: %v", docKey, batch.DocumentKeys(s.cfg.AppConfig))
		}
		if _, err := docCfg.Validate(); err != nil {
			return nil, err
		}
		doc, err := s.loader.Load(ctx, docKey, docCfg)
		if err != nil {
			return nil, err
		}
		return &resolvedSource{key: docKey, location: docCfg.Location, markdown: doc.Markdown, docCfg: docCfg}, nil
	}

	location := request.GetString("location", "")
	if location == "" {
		return nil, errors.New("one of markdown, doc_key or location is required")
	}
	doc, err := s.loader.LoadLocation(ctx, location)
	if err != nil {
		return nil, err
	}
	return &resolvedSource{
		key:      doc.Key,
		location: doc.Location,
		markdown: doc.Markdown,
		docCfg:   config.DocumentConfig{Location: doc.Location, Format: doc.Format},
	}, nil
}

// handleListDocuments handles the list_documents tool
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys := batch.DocumentKeys(s.cfg.AppConfig)
	docs := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		docCfg := s.cfg.AppConfig.Documents[key]
		info := map[string]interface{}{
			"key":       key,
			"location":  docCfg.Location,
			"extractor": config.GetEffectiveExtractor(docCfg, *s.cfg.AppConfig),
		}
		if s.cfg.Store != nil {
			if state, found, err := s.cfg.Store.GetNavState(key); err == nil && found {
				info["last_hash"] = state.Hash
				info["last_visited"] = state.UpdatedAt.Format(time.RFC3339)
			}
		}
		docs = append(docs, info)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"documents":       docs,
		"config_path":     s.cfg.ConfigPath,
		"total_documents": len(docs),
		"open_sessions":   len(s.sessions.List()),
	})), nil
}

// handleExtractOutline handles the extract_outline tool
func (s *Server) handleExtractOutline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	extractor := request.GetString("extractor", "")
	if extractor != "" && extractor != config.ExtractorPattern && extractor != config.ExtractorGoldmark {
		return mcp.NewToolResultError(fmt.Sprintf("unknown extractor %q (supported: pattern, goldmark)", extractor)), nil
	}

	if markdown := request.GetString("markdown", ""); markdown != "" {
		if extractor == "" {
			extractor = config.GetEffectiveExtractor(config.DocumentConfig{}, *s.cfg.AppConfig)
		}
		headings := outline.ExtractorByName(extractor)(markdown)
		if headings == nil {
			headings = []outline.Heading{}
		}
		return mcp.NewToolResultText(formatJSON(models.SourceResult{
			DocKey:      inlineDocKey,
			Status:      models.SourceStatusSuccess,
			ContentHash: utils.CalculateStringSHA256(markdown),
			Extractor:   extractor,
			Headings:    headings,
		})), nil
	}

	var jobs []batch.Job
	var err error
	if docKey := request.GetString("doc_key", ""); docKey != "" {
		jobs, err = batch.JobsFromConfig(s.cfg.AppConfig, []string{docKey})
	} else if location := request.GetString("location", ""); location != "" {
		jobs, err = batch.JobsFromLocations([]string{location})
	} else {
		err = errors.New("one of markdown, doc_key or location is required")
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job := jobs[0]
	if extractor != "" {
		job.Doc.Extractor = extractor
	}
	result := s.runner.Outline(ctx, job)
	if result.Status != models.SourceStatusSuccess {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", result.Error, result.ErrorType)), nil
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleOpenSession handles the open_session tool
func (s *Server) handleOpenSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := s.resolveSource(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	settings := config.GetEffectiveNavbar(src.docCfg, *s.cfg.AppConfig)
	args := request.GetArguments()
	if v, ok := args["declarative"].(bool); ok {
		settings.Declarative = v
	}
	if v, ok := args["hash_mode"].(bool); ok {
		settings.HashMode = v
	}
	if v, ok := args["update_hash_auto"].(bool); ok {
		settings.UpdateHashAuto = v
	}
	if v, ok := args["heading_top_offset"].(float64); ok {
		settings.HeadingTopOffset = v
	}

	initialHash := request.GetString("hash", "")
	if initialHash == "" && s.cfg.Store != nil && src.key != inlineDocKey {
		if state, found, err := s.cfg.Store.GetNavState(src.key); err != nil {
			s.log.Warnf("Reading saved navigation state for '%s' failed: %v", src.key, err)
		} else if found {
			initialHash = state.Hash
		}
	}

	opts := SessionOptions{
		DocKey:      src.key,
		Location:    src.location,
		Source:      src.markdown,
		Navbar:      settings,
		Extractor:   config.GetEffectiveExtractor(src.docCfg, *s.cfg.AppConfig),
		Layout:      s.cfg.AppConfig.Layout,
		InitialHash: initialHash,
	}
	if s.cfg.Store != nil && src.key != inlineDocKey {
		contentHash := utils.CalculateStringSHA256(src.markdown)
		opts.OnHash = func(docKey, hash string, scrollTop float64, listNo string) {
			entry := &models.NavStateEntry{DocKey: docKey, Hash: hash, ListNo: listNo, ScrollTop: scrollTop, ContentHash: contentHash}
			if err := s.cfg.Store.SaveNavState(entry); err != nil {
				s.log.Warnf("Saving navigation state for '%s' failed: %v", docKey, err)
			}
		}
	}

	session, err := NewSession(opts, s.log)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open session: %v", err)), nil
	}
	s.sessions.Add(session)
	s.log.WithField("session_id", session.ID).Infof("Opened navigation session for '%s'", src.key)
	return mcp.NewToolResultText(formatJSON(session.Snapshot())), nil
}

// withSession looks up the session named in the request and runs action on it
func (s *Server) withSession(request mcp.CallToolRequest, action func(*Session) error) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	session, err := s.sessions.Get(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if action != nil {
		if err := action(session); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(formatJSON(session.Snapshot())), nil
}

// handleScrollSession handles the scroll_session tool
func (s *Server) handleScrollSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top, ok := request.GetArguments()["top"].(float64)
	if !ok {
		return mcp.NewToolResultError("top parameter is required"), nil
	}
	return s.withSession(request, func(session *Session) error { return session.Scroll(top) })
}

// handleClickSession handles the click_session tool
func (s *Server) handleClickSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	headingID := request.GetString("heading_id", "")
	if headingID == "" {
		return mcp.NewToolResultError("heading_id parameter is required"), nil
	}
	return s.withSession(request, func(session *Session) error { return session.Click(headingID) })
}

// handleNavigateSession handles the navigate_session tool
func (s *Server) handleNavigateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hash := request.GetString("hash", "")
	return s.withSession(request, func(session *Session) error { return session.Navigate(hash) })
}

// handleReplaceSessionSource handles the replace_session_source tool
func (s *Server) handleReplaceSessionSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown := request.GetString("markdown", "")
	return s.withSession(request, func(session *Session) error { return session.Replace(markdown) })
}

// handleGetSession handles the get_session tool
func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withSession(request, nil)
}

// handleCloseSession handles the close_session tool
func (s *Server) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	if err := s.sessions.Close(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status":     "closed",
		"session_id": id,
	})), nil
}

func formatJSON(data interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
