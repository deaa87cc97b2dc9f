package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const (
	serverName    = "movie-recommender"
	serverVersion = "0.1.0"
)

// Server exposes movie search and recommendation as MCP tools.
type Server struct {
	searcher     ports.MovieSearcher
	recommender  ports.MovieRecommender
	offers       ports.OfferAnnotator
	defaultLimit int
	mcp          *server.MCPServer
}

// NewServer registers the tools; offers may be nil.
func NewServer(searcher ports.MovieSearcher, recommender ports.MovieRecommender, offers ports.OfferAnnotator, defaultLimit int) *Server {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	s := &Server{
		searcher:     searcher,
		recommender:  recommender,
		offers:       offers,
		defaultLimit: defaultLimit,
		mcp:          server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true)),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("search_movies",
		mcp.WithDescription(`Search the movie catalog. Clauses joined by "and" are intersected, e.g. "movies starring Tom Hanks and released after 2000". Unrecognized clauses are matched semantically against plot and metadata.`),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language movie query")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of movies to return")),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("recommend_movies",
		mcp.WithDescription("Search the catalog and return re-ranked recommendations with a reason for each title."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language movie query")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of candidates to re-rank")),
		mcp.WithBoolean("with_offers", mcp.Description("Attach rent/buy offers for each recommendation")),
	), s.handleRecommend)
}

// Serve speaks MCP over the given streams until ctx is done or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", s.defaultLimit)

	result, err := s.searcher.Search(ctx, query, limit)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", "search_movies", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (s *Server) handleRecommend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", s.defaultLimit)

	result, err := s.recommender.Recommend(ctx, query, limit)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", "recommend_movies", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("recommend failed: %v", err)), nil
	}
	if request.GetBool("with_offers", false) && s.offers != nil && len(result.Recommendations) > 0 {
		s.offers.AttachOffers(ctx, result.Recommendations)
	}
	return jsonResult(result)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
