// Package builtin provides the stock tools the assistant ships with: calendar
// and clock lookups, open-meteo geocoding and weather, and SerpAPI web search.
package builtin

import (
	"net/http"
	"time"

	"github.com/ericmichael/llm-deployment/tool"
)

// Default API endpoints.
const (
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultSearchURL   = "https://serpapi.com/search.json"
	DefaultTimezone    = "America/Chicago"
)

// Options configures the built-in tools.
type Options struct {
	// HTTPClient is used for all remote lookups. Defaults to a client with a
	// 15 second timeout.
	HTTPClient *http.Client
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	GeocodeURL  string
	ForecastURL string
	SearchURL   string

	// Timezone is passed to the forecast API.
	Timezone string
	// Location biases web search results, e.g. "Austin, Texas".
	Location string
	// SerpAPIKey enables search_google_web. Empty disables the tool.
	SerpAPIKey string
}

func newOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
		Now:         time.Now,
		GeocodeURL:  DefaultGeocodeURL,
		ForecastURL: DefaultForecastURL,
		SearchURL:   DefaultSearchURL,
		Timezone:    DefaultTimezone,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}

// Tools returns every built-in tool that is usable with the given options.
// search_google_web is included only when a SerpAPI key is configured.
func Tools(optFns ...func(o *Options)) []tool.Tool {
	opts := newOptions(optFns...)

	tools := []tool.Tool{
		todaysDate(opts),
		tomorrowsDate(opts),
		currentTime(opts),
		geocode(opts),
		weather(opts),
	}

	if opts.SerpAPIKey != "" {
		tools = append(tools, searchWeb(opts))
	}

	return tools
}

// Registry builds a fresh registry holding Tools(optFns...).
func Registry(optFns ...func(o *Options)) (*tool.Registry, error) {
	return tool.NewRegistry(Tools(optFns...)...)
}
