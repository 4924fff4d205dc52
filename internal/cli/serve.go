package cli

import (
	"github.com/spf13/cobra"

	"github.com/lorehound/lorehound/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `Serve exposes the suggestion pipeline as MCP tools (lore_scan,
lore_dismiss, lore_reclassify, lore_mark_created, lore_session_state) over
stdio, for editor agents and MCP-capable clients.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig("")
		if err != nil {
			exitErr("resolving config", err)
		}
		st, err := openStore(cfg)
		if err != nil {
			exitErr("opening store", err)
		}
		defer st.Close()

		srv := mcp.NewServer(mcp.ServerConfig{
			Engine:  buildEngine(cfg),
			Store:   st,
			Version: Version,
		})
		if err := mcp.ServeStdio(srv); err != nil {
			exitErr("mcp server", err)
		}
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
