// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spotlight

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/entity-linker/pkg/types"
)

const shortText = "Google LLC is an American multinational technology company."

const annotateBody = `{
  "@text": "Google LLC is an American multinational technology company.",
  "@confidence": "0.5",
  "@support": "0",
  "@policy": "whitelist",
  "Resources": [
    {"@URI": "http://dbpedia.org/resource/Google", "@support": "13562", "@types": "Http://xmlns.com/foaf/0.1/Company", "@surfaceForm": "Google LLC", "@offset": "0", "@similarityScore": "0.99"},
    {"@URI": "http://dbpedia.org/resource/United_States", "@support": "560000", "@types": "", "@surfaceForm": "American", "@offset": "17", "@similarityScore": "0.98"}
  ]
}`

const spotBody = `{
  "annotation": {
    "@text": "Google LLC is an American multinational technology company.",
    "surfaceForm": [
      {"@name": "Google LLC", "@offset": "0"},
      {"@name": "American", "@offset": "17"}
    ]
  }
}`

const spotSingleBody = `{
  "annotation": {
    "@text": "Google LLC is an American multinational technology company.",
    "surfaceForm": {"@name": "Google", "@offset": "0"}
  }
}`

const candidatesBody = `{
  "annotation": {
    "@text": "Google LLC is an American multinational technology company.",
    "surfaceForm": [
      {"@name": "Google", "@offset": "0", "resource": {"@label": "Google", "@uri": "Google", "@contextualScore": "0.9"}},
      {"@name": "American", "@offset": "17", "resource": [
        {"@label": "United States", "@uri": "United_States", "@contextualScore": "0.7"},
        {"@label": "Americans", "@uri": "Americans", "@contextualScore": "0.2"}
      ]}
    ]
  }
}`

const candidatesSingleBody = `{
  "annotation": {
    "@text": "Google",
    "surfaceForm": {"@name": "Google", "@offset": "0", "resource": {"@label": "Google", "@uri": "Google"}}
  }
}`

func TestParseResponseAnnotate(t *testing.T) {
	mentions, err := ParseResponse([]byte(annotateBody), types.ModeAnnotate)
	require.NoError(t, err)
	require.Len(t, mentions, 2)

	assert.Equal(t, 0, mentions[0].Start)
	assert.Equal(t, 10, mentions[0].End)
	assert.Equal(t, "Google LLC", mentions[0].SurfaceForm)
	assert.Equal(t, "http://dbpedia.org/resource/Google", mentions[0].URI)

	assert.Equal(t, 17, mentions[1].Start)
	assert.Equal(t, 25, mentions[1].End)
	assert.Equal(t, "http://dbpedia.org/resource/United_States", mentions[1].URI)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(mentions[0].Raw, &raw))
	assert.Equal(t, "http://dbpedia.org/resource/Google", raw["@URI"])
	assert.Equal(t, "13562", raw["@support"])
}

func TestParseResponseSpot(t *testing.T) {
	mentions, err := ParseResponse([]byte(spotBody), types.ModeSpot)
	require.NoError(t, err)
	require.Len(t, mentions, 2)

	for _, m := range mentions {
		assert.Empty(t, m.URI, "spot mode never produces identifiers")
	}
	assert.Equal(t, "Google LLC", mentions[0].SurfaceForm)
	assert.Equal(t, "American", mentions[1].SurfaceForm)
}

func TestParseResponseSingleObjectNormalized(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		mode    types.LinkMode
		wantURI string
	}{
		{"spot", spotSingleBody, types.ModeSpot, ""},
		{"candidates", candidatesSingleBody, types.ModeCandidates, "http://dbpedia.org/resource/Google"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mentions, err := ParseResponse([]byte(tt.body), tt.mode)
			require.NoError(t, err)
			require.Len(t, mentions, 1)
			assert.Equal(t, "Google", mentions[0].SurfaceForm)
			assert.Equal(t, 0, mentions[0].Start)
			assert.Equal(t, 6, mentions[0].End)
			assert.Equal(t, tt.wantURI, mentions[0].URI)
		})
	}
}

func TestParseResponseCandidatesURISynthesis(t *testing.T) {
	mentions, err := ParseResponse([]byte(candidatesBody), types.ModeCandidates)
	require.NoError(t, err)
	require.Len(t, mentions, 2)

	assert.Equal(t, "http://dbpedia.org/resource/Google", mentions[0].URI)
	// The first candidate wins when the service lists several.
	assert.Equal(t, "http://dbpedia.org/resource/United_States", mentions[1].URI)
}

func TestParseResponseEmpty(t *testing.T) {
	tests := []struct {
		name string
		body string
		mode types.LinkMode
	}{
		{"empty body", "", types.ModeAnnotate},
		{"annotate without resources", `{"@text": "nothing here"}`, types.ModeAnnotate},
		{"annotate empty resources", `{"@text": "x", "Resources": []}`, types.ModeAnnotate},
		{"spot without surface forms", `{"annotation": {"@text": "nothing"}}`, types.ModeSpot},
		{"candidates without annotation", `{}`, types.ModeCandidates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mentions, err := ParseResponse([]byte(tt.body), tt.mode)
			require.NoError(t, err)
			assert.Empty(t, mentions)
		})
	}
}

func TestParseResponseSkipsIncompleteEntries(t *testing.T) {
	body := `{"Resources": [
		{"@URI": "http://dbpedia.org/resource/A", "@surfaceForm": "A"},
		{"@URI": "http://dbpedia.org/resource/B", "@offset": "2"},
		{"@URI": "http://dbpedia.org/resource/C", "@surfaceForm": "C", "@offset": "4"}
	]}`
	mentions, err := ParseResponse([]byte(body), types.ModeAnnotate)
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "http://dbpedia.org/resource/C", mentions[0].URI)
}

func TestParseResponseSkipsBadOffsets(t *testing.T) {
	tests := []struct {
		name   string
		offset string
	}{
		{"null", `null`},
		{"non-numeric string", `"abc"`},
		{"empty string", `""`},
		{"fractional", `1.5`},
		{"negative", `"-3"`},
		{"object", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"Resources": [
				{"@URI": "u", "@surfaceForm": "Google", "@offset": ` + tt.offset + `},
				{"@URI": "v", "@surfaceForm": "LLC", "@offset": 7}
			]}`
			mentions, err := ParseResponse([]byte(body), types.ModeAnnotate)
			require.NoError(t, err)
			require.Len(t, mentions, 1)
			assert.Equal(t, "v", mentions[0].URI)
			assert.Equal(t, 7, mentions[0].Start)
			assert.Equal(t, 10, mentions[0].End)
		})
	}
}

func TestParseResponseCountsRunes(t *testing.T) {
	body := `{"Resources": [{"@URI": "http://de.dbpedia.org/resource/München", "@surfaceForm": "München", "@offset": "3"}]}`
	mentions, err := ParseResponse([]byte(body), types.ModeAnnotate)
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, 10, mentions[0].End)
}

func TestParseResponseErrors(t *testing.T) {
	_, err := ParseResponse([]byte(`{"Resources": [`), types.ModeAnnotate)
	assert.Error(t, err)

	_, err = ParseResponse([]byte(annotateBody), types.LinkMode("disambiguate"))
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}
