package tool

import (
	"regexp"
	"strings"
)

// Marker is the literal prefix a model reply uses to request a tool call.
const Marker = "Tool: "

// Known limitation: arguments are split on ", " after every double quote is
// removed, and the expression ends at the first ")". Arguments containing
// ", " or parentheses therefore cannot be passed.
var (
	callPattern = regexp.MustCompile(`Tool:\s*(\w+)\((.*?)\)`)
	markerText  = strings.TrimSpace(Marker)
)

// HasMarker reports whether reply contains the tool call marker.
func HasMarker(reply string) bool {
	return strings.Contains(reply, markerText)
}

// Parse inspects a model reply for a tool call.
//
// Results:
//
//	no marker                      -> ok=false, err=nil (final answer)
//	marker + valid call expression -> ok=true,  call populated
//	marker without a valid call    -> ok=false, err=*ParseError
//
// Parse is a pure function; parsing the same text twice yields equal values.
func Parse(reply string) (ParsedCall, bool, error) {
	if !HasMarker(reply) {
		return ParsedCall{}, false, nil
	}

	m := callPattern.FindStringSubmatch(reply)
	if m == nil {
		return ParsedCall{}, false, &ParseError{
			Reply:  reply,
			Reason: `expected "Tool: name(arg1, arg2, ...)"`,
		}
	}

	return ParsedCall{Name: m[1], Arguments: splitArguments(m[2])}, true, nil
}

func splitArguments(raw string) []string {
	raw = strings.ReplaceAll(raw, `"`, "")
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ", ")
}
