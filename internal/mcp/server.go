// Package mcp provides a Model Context Protocol server for Lorehound.
//
// It exposes the suggestion pipeline (scan, dismiss, reclassify, mark
// created, session state) as MCP tools over stdio, so editor agents can
// drive entity review without a bespoke RPC layer.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lorehound/lorehound/internal/engine"
	"github.com/lorehound/lorehound/internal/entity"
	"github.com/lorehound/lorehound/internal/session"
	"github.com/lorehound/lorehound/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Engine  *engine.Engine
	Store   *store.SQLiteStore
	Version string
}

// dbMu serializes tool calls that touch the database. The mcp-go library
// dispatches handlers concurrently via goroutines; SQLite supports only one
// writer at a time, and session decisions must never interleave.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all Lorehound tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Lorehound",
		ver,
		server.WithToolCapabilities(false),
	)

	registerScanTool(s, cfg.Engine, cfg.Store)
	registerDismissTool(s, cfg.Store)
	registerReclassifyTool(s, cfg.Store)
	registerMarkCreatedTool(s, cfg.Store)
	registerSessionStateTool(s, cfg.Store)

	return s
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerScanTool(s *server.MCPServer, eng *engine.Engine, st *store.SQLiteStore) {
	tool := mcp.NewTool("lore_scan",
		mcp.WithDescription("Scan session-note text for candidate entities (people, places, quests). Returns candidates with confidence and mention offsets, matches against existing records, and proximity-based relationship suggestions. Candidates already dismissed or created in today's session are filtered out."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("team_id",
			mcp.Required(),
			mcp.Description("Team whose record store and session state scope this scan"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Session-note text to scan"),
		),
		mcp.WithString("min_confidence",
			mcp.Description("Drop candidates below this tier (default: low)"),
			mcp.Enum("high", "medium", "low"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		teamID, err := req.RequireString("team_id")
		if err != nil {
			return mcp.NewToolResultError("team_id is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		minConf := entity.ConfidenceLow
		if confStr, err := req.RequireString("min_confidence"); err == nil && confStr != "" {
			minConf, err = entity.ParseConfidence(confStr)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid min_confidence: %v", err)), nil
			}
		}

		sess, err := session.Open(st, teamID, time.Now())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("opening session: %v", err)), nil
		}
		records, err := st.RecordsForTeam(ctx, teamID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading records: %v", err)), nil
		}

		blocks := []entity.Block{{ID: "text", Content: text}}
		result, err := eng.Suggest(ctx, blocks, records, sess)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}

		if minConf > entity.ConfidenceLow {
			kept := result.Candidates[:0]
			for _, c := range result.Candidates {
				if c.Confidence >= minConf {
					kept = append(kept, c)
				}
			}
			result.Candidates = kept
		}

		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}

// sessionTool is the shared scaffolding for the three decision tools.
func sessionTool(st *store.SQLiteStore, apply func(sess *session.Store, req mcp.CallToolRequest) error) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		teamID, err := req.RequireString("team_id")
		if err != nil {
			return mcp.NewToolResultError("team_id is required"), nil
		}
		sess, err := session.Open(st, teamID, time.Now())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("opening session: %v", err)), nil
		}
		if err := apply(sess, req); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(`{"ok": true}`), nil
	}
}

func registerDismissTool(s *server.MCPServer, st *store.SQLiteStore) {
	tool := mcp.NewTool("lore_dismiss",
		mcp.WithDescription("Dismiss a suggested candidate for today's session. Dismissed candidates stop appearing in lore_scan results."),
		mcp.WithString("team_id", mcp.Required(), mcp.Description("Team scope")),
		mcp.WithString("candidate_id", mcp.Required(), mcp.Description("Candidate to dismiss")),
	)
	s.AddTool(tool, sessionTool(st, func(sess *session.Store, req mcp.CallToolRequest) error {
		id, err := req.RequireString("candidate_id")
		if err != nil {
			return fmt.Errorf("candidate_id is required")
		}
		return sess.Dismiss(id)
	}))
}

func registerReclassifyTool(s *server.MCPServer, st *store.SQLiteStore) {
	tool := mcp.NewTool("lore_reclassify",
		mcp.WithDescription("Override the detected kind of a candidate (person, place, quest) for today's session."),
		mcp.WithString("team_id", mcp.Required(), mcp.Description("Team scope")),
		mcp.WithString("candidate_id", mcp.Required(), mcp.Description("Candidate to reclassify")),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Override kind"),
			mcp.Enum("person", "place", "quest"),
		),
	)
	s.AddTool(tool, sessionTool(st, func(sess *session.Store, req mcp.CallToolRequest) error {
		id, err := req.RequireString("candidate_id")
		if err != nil {
			return fmt.Errorf("candidate_id is required")
		}
		kindStr, err := req.RequireString("kind")
		if err != nil {
			return fmt.Errorf("kind is required")
		}
		return sess.Reclassify(id, entity.Kind(kindStr))
	}))
}

func registerMarkCreatedTool(s *server.MCPServer, st *store.SQLiteStore) {
	tool := mcp.NewTool("lore_mark_created",
		mcp.WithDescription("Record that a candidate has been turned into a record. The candidate is permanently filtered from this session's scans."),
		mcp.WithString("team_id", mcp.Required(), mcp.Description("Team scope")),
		mcp.WithString("candidate_id", mcp.Required(), mcp.Description("Candidate that produced a record")),
	)
	s.AddTool(tool, sessionTool(st, func(sess *session.Store, req mcp.CallToolRequest) error {
		id, err := req.RequireString("candidate_id")
		if err != nil {
			return fmt.Errorf("candidate_id is required")
		}
		return sess.MarkCreated(id)
	}))
}

func registerSessionStateTool(s *server.MCPServer, st *store.SQLiteStore) {
	tool := mcp.NewTool("lore_session_state",
		mcp.WithDescription("Return today's review decisions for a team: dismissed, reclassified, and created candidate ids."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("team_id", mcp.Required(), mcp.Description("Team scope")),
	)
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		teamID, err := req.RequireString("team_id")
		if err != nil {
			return mcp.NewToolResultError("team_id is required"), nil
		}
		sess, err := session.Open(st, teamID, time.Now())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("opening session: %v", err)), nil
		}
		payload, err := json.MarshalIndent(sess.State(), "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding state: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}
