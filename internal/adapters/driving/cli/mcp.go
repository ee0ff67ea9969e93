package cli

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve filings Q&A to MCP clients",
	Long: `Expose the indexed filings to AI assistants over the Model Context Protocol.

Tools:     ask, search, list_documents, document_status
Prompts:   ask_filing, compare_periods
Resources: filings://documents, filings://documents/{docId},
           filings://documents/{docId}/chunks

Without --port the server speaks JSON-RPC on stdin and stdout, which is
what desktop assistants launch. With --port it serves the streamable HTTP
transport instead, for the MCP Inspector or remote clients.

Generation is optional: when no LLM is reachable, search and the listing
tools still work and ask reports the provider error.

Example client entry:
  {
    "mcpServers": {
      "filings": {
        "command": "/path/to/filings",
        "args": ["mcp", "serve", "--manifest", "/path/to/manifest.yaml"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "serve HTTP on this port instead of stdio")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "interface to bind with --port")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	app, err := newApp(appOptions{Need: needEmbedder})
	if err != nil {
		return err
	}
	defer app.Close()

	server, err := mcp.NewServer(&mcp.Ports{
		Answers:  app.Answers,
		Registry: app.Registry,
		Pipeline: app.Pipeline,
	}, version)
	if err != nil {
		return err
	}

	if mcpPort == 0 {
		return server.Run(cmd.Context())
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort)))
	if err != nil {
		return err
	}
	// stdout stays free for tools that pipe the command.
	cmd.PrintErrf("MCP server listening on http://%s\n", ln.Addr())
	return server.Serve(cmd.Context(), ln)
}
