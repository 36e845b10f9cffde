package builtin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ericmichael/llm-deployment/tool"
)

// SearchResult is one organic web result.
type SearchResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet,omitempty"`
}

type searchResponse struct {
	Error          string         `json:"error,omitempty"`
	OrganicResults []SearchResult `json:"organic_results"`
}

const maxSearchResults = 5

func searchWeb(opts Options) tool.Tool {
	return tool.NewFunctionTool(
		"search_google_web",
		"Search Google for real-time information such as current events, news or general facts. "+
			`Example: search_google_web("Who won the 2002 World Cup?")`,
		[]string{"query"},
		func(ctx context.Context, args []string) (any, error) {
			// The parser splits on ", " so a query may arrive in pieces.
			if len(args) == 0 || strings.TrimSpace(strings.Join(args, "")) == "" {
				return nil, tool.NewInvalidArgumentsError("search_google_web", "query", "missing")
			}

			q := url.Values{}
			q.Set("engine", "google")
			q.Set("q", strings.Join(args, ", "))
			q.Set("api_key", opts.SerpAPIKey)

			if opts.Location != "" {
				q.Set("location", opts.Location)
			}

			var resp searchResponse
			if err := getJSON(ctx, opts.HTTPClient, opts.SearchURL, q, &resp); err != nil {
				return nil, err
			}

			if resp.Error != "" {
				return nil, fmt.Errorf("serpapi: %s", resp.Error)
			}

			results := resp.OrganicResults
			if len(results) > maxSearchResults {
				results = results[:maxSearchResults]
			}

			return results, nil
		},
	)
}
