package service

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"cancioneiro/internal/core/normalize"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/services/semantic/domain"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed response.schema.json
var responseSchema []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("response.schema.json", bytes.NewReader(responseSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("response.schema.json")
	})
	return schema, schemaErr
}

type rawEntry struct {
	Word       string   `json:"word"`
	Code       string   `json:"code"`
	Alternates []string `json:"alternates"`
	Confidence float64  `json:"confidence"`
}

type rawResponse struct {
	Classifications []rawEntry `json:"classifications"`
}

// parseResponse decodes model output into one entry per item, in item order.
// Any deviation is an error and the caller falls back for the whole batch
func parseResponse(content string, items []domain.Item) ([]rawEntry, error) {
	candidate := extractObject(content)
	if candidate == "" {
		return nil, perr.JSONErrf("no json object in classifier output")
	}

	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "classifier output is not json")
	}
	sch, err := compiledSchema()
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "classifier schema")
	}
	if err := sch.Validate(doc); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "classifier output does not match schema")
	}

	var resp rawResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "classifier decode")
	}
	if len(resp.Classifications) != len(items) {
		return nil, perr.JSONErrf("classifier returned %d entries for %d words", len(resp.Classifications), len(items))
	}
	for i, e := range resp.Classifications {
		if normalize.Word(e.Word) != normalize.Word(items[i].Word) {
			return nil, perr.JSONErrf("classifier entry %d is %q, want %q", i+1, e.Word, items[i].Word)
		}
	}
	return resp.Classifications, nil
}

// extractObject strips a markdown fence and returns the outermost {...} span
func extractObject(content string) string {
	s := stripCodeFences(strings.TrimSpace(content))
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
