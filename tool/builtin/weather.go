package builtin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ericmichael/llm-deployment/tool"
)

// Place is one geocoding match.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country,omitempty"`
	Admin1    string  `json:"admin1,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
}

type geocodeResponse struct {
	Results []Place `json:"results"`
}

func geocode(opts Options) tool.Tool {
	return tool.NewFunctionTool(
		"geocode",
		`Look up the latitude and longitude of a city. Pass the city name only, without the state. Example: geocode("New York")`,
		[]string{"city"},
		func(ctx context.Context, args []string) (any, error) {
			if err := tool.RequireArgs("geocode", args, "city"); err != nil {
				return nil, err
			}

			city := strings.TrimSpace(args[0])
			if city == "" {
				return nil, tool.NewInvalidArgumentsError("geocode", "city", "must not be empty")
			}

			q := url.Values{}
			q.Set("name", city)
			q.Set("count", "10")
			q.Set("language", "en")
			q.Set("format", "json")

			var resp geocodeResponse
			if err := getJSON(ctx, opts.HTTPClient, opts.GeocodeURL, q, &resp); err != nil {
				return nil, err
			}

			if len(resp.Results) == 0 {
				return fmt.Sprintf("no places found for %q", city), nil
			}

			return resp.Results, nil
		},
	)
}

// Conditions is the current weather block returned by the forecast API.
type Conditions struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature_2m"`
	IsDay         int     `json:"is_day"`
	Precipitation float64 `json:"precipitation"`
	Rain          float64 `json:"rain"`
	Showers       float64 `json:"showers"`
	Snowfall      float64 `json:"snowfall"`
}

type forecastResponse struct {
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	Timezone     string            `json:"timezone"`
	CurrentUnits map[string]string `json:"current_units"`
	Current      Conditions        `json:"current"`
}

func weather(opts Options) tool.Tool {
	return tool.NewFunctionTool(
		"weather",
		"Look up the current weather for a latitude and longitude. Example: weather(52.52, 13.41)",
		[]string{"latitude", "longitude"},
		func(ctx context.Context, args []string) (any, error) {
			if err := tool.RequireArgs("weather", args, "latitude", "longitude"); err != nil {
				return nil, err
			}

			lat, err := parseCoordinate("latitude", args[0], 90)
			if err != nil {
				return nil, err
			}

			lon, err := parseCoordinate("longitude", args[1], 180)
			if err != nil {
				return nil, err
			}

			q := url.Values{}
			q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
			q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
			q.Set("current", "temperature_2m,is_day,precipitation,rain,showers,snowfall")
			q.Set("timezone", opts.Timezone)

			var resp forecastResponse
			if err := getJSON(ctx, opts.HTTPClient, opts.ForecastURL, q, &resp); err != nil {
				return nil, err
			}

			return resp, nil
		},
	)
}

func parseCoordinate(name, raw string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, tool.NewInvalidArgumentsError("weather", name, fmt.Sprintf("%q is not a number", raw))
	}

	if v < -limit || v > limit {
		return 0, tool.NewInvalidArgumentsError("weather", name, fmt.Sprintf("must be between -%g and %g", limit, limit))
	}

	return v, nil
}
