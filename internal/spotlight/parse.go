// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spotlight

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/entity-linker/pkg/types"
)

// resourceBase prefixes candidate resource names to form a DBpedia URI.
const resourceBase = "http://dbpedia.org/resource/"

// responseShape describes where one service process puts its mentions.
type responseShape struct {
	// list is the gjson path of the mention list. A single object found at
	// the path is treated as a one-element list.
	list string

	// surface is the field holding the mention text.
	surface string

	// uri extracts the knowledge-base identifier, or "" for none.
	uri func(entry gjson.Result) string
}

// shapes maps each supported mode to its response layout. Adding a mode is a
// single entry here plus its LinkMode constant.
var shapes = map[types.LinkMode]responseShape{
	types.ModeAnnotate: {
		list:    "Resources",
		surface: `\@surfaceForm`,
		uri: func(e gjson.Result) string {
			return e.Get(`\@URI`).String()
		},
	},
	types.ModeSpot: {
		list:    "annotation.surfaceForm",
		surface: `\@name`,
		uri:     func(gjson.Result) string { return "" },
	},
	types.ModeCandidates: {
		list:    "annotation.surfaceForm",
		surface: `\@name`,
		uri: func(e gjson.Result) string {
			res := e.Get("resource")
			if res.IsArray() {
				res = res.Get("0")
			}
			name := res.Get(`\@uri`).String()
			if name == "" {
				return ""
			}
			return resourceBase + name
		},
	},
}

// ParseResponse extracts the mentions from one service response body in the
// order they appear. A missing or empty mention list yields no mentions;
// entries without a numeric offset or a surface form are skipped.
func ParseResponse(body []byte, mode types.LinkMode) ([]types.Mention, error) {
	shape, ok := shapes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("parsing %s response: invalid JSON", mode)
	}

	list := gjson.GetBytes(body, shape.list)
	var entries []gjson.Result
	switch {
	case list.IsArray():
		entries = list.Array()
	case list.IsObject():
		entries = []gjson.Result{list}
	}

	mentions := make([]types.Mention, 0, len(entries))
	for _, e := range entries {
		start, ok := parseOffset(e.Get(`\@offset`))
		surface := e.Get(shape.surface)
		if !ok || !surface.Exists() {
			continue
		}
		text := surface.String()
		mentions = append(mentions, types.Mention{
			Start:       start,
			End:         start + len([]rune(text)),
			SurfaceForm: text,
			URI:         shape.uri(e),
			Raw:         json.RawMessage(e.Raw),
		})
	}
	return mentions, nil
}

// parseOffset reads a character offset written as a JSON number or a numeric
// string. Null, non-numeric and negative offsets are rejected.
func parseOffset(v gjson.Result) (int, bool) {
	var n int
	switch v.Type {
	case gjson.Number:
		if v.Num != float64(int(v.Num)) {
			return 0, false
		}
		n = int(v.Num)
	case gjson.String:
		var err error
		if n, err = strconv.Atoi(strings.TrimSpace(v.Str)); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}
