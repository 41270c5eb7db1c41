// Package pyramid maps unit, integration and regression test results onto
// features to describe the shape of each feature's test pyramid.
package pyramid

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	ferrors "featuremap/internal/errors"
)

const exampleSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "status"],
    "properties": {
      "id": { "type": "string" },
      "status": { "type": "string" }
    }
  }
}`

const suiteSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "assertionResults"],
    "properties": {
      "name": { "type": "string" },
      "assertionResults": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["status"],
          "properties": { "status": { "type": "string" } }
        }
      }
    }
  }
}`

var (
	exampleSchemaLoader = gojsonschema.NewStringLoader(exampleSchemaJSON)
	suiteSchemaLoader   = gojsonschema.NewStringLoader(suiteSchemaJSON)
)

// Format identifies a supported report layout.
type Format string

const (
	// FormatExamples is a list of {id, status} records, optionally wrapped
	// in {"examples": [...]}.
	FormatExamples Format = "examples"
	// FormatSuites is a list of {name, assertionResults: [{status}]} suites,
	// optionally wrapped in {"testResults": [...]}.
	FormatSuites Format = "suites"
)

var pendingStatuses = map[string]bool{
	"pending": true,
	"skipped": true,
	"todo":    true,
}

// IsPending reports whether status counts as pending.
func IsPending(status string) bool {
	return pendingStatuses[strings.ToLower(strings.TrimSpace(status))]
}

// Count is the number of test outcomes and how many of them are pending.
type Count struct {
	Count   int `json:"count" yaml:"count"`
	Pending int `json:"pending" yaml:"pending"`
}

// Add returns the sum of two counts.
func (c Count) Add(o Count) Count {
	return Count{Count: c.Count + o.Count, Pending: c.Pending + o.Pending}
}

// Report groups outcomes by normalized test file key.
type Report struct {
	Format   Format
	outcomes map[string]Count
}

// Lookup returns the outcomes recorded under key.
func (r *Report) Lookup(key string) Count {
	if r == nil {
		return Count{}
	}
	return r.outcomes[key]
}

// Keys is the number of distinct test file keys.
func (r *Report) Keys() int { return len(r.outcomes) }

type example struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type suite struct {
	Name             string `json:"name"`
	AssertionResults []struct {
		Status string `json:"status"`
	} `json:"assertionResults"`
}

// LoadReport reads and parses a report file.
func LoadReport(file string, n Normalizer) (*Report, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, ferrors.New(ferrors.ExternalUnavailable, "reading test report "+file, err)
	}
	r, err := ParseReport(data, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return r, nil
}

// ParseReport detects the report format and groups its outcomes.
func ParseReport(data []byte, n Normalizer) (*Report, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ferrors.New(ferrors.ExternalBadResponse, "test report is not valid JSON", err)
	}

	var raw json.RawMessage = data
	if obj, ok := doc.(map[string]interface{}); ok {
		var wrapped map[string]json.RawMessage
		_ = json.Unmarshal(data, &wrapped)
		switch {
		case obj["examples"] != nil:
			doc, raw = obj["examples"], wrapped["examples"]
		case obj["testResults"] != nil:
			doc, raw = obj["testResults"], wrapped["testResults"]
		}
	}

	format, err := detect(doc)
	if err != nil {
		return nil, err
	}

	r := &Report{Format: format, outcomes: make(map[string]Count)}
	switch format {
	case FormatExamples:
		var examples []example
		if err := json.Unmarshal(raw, &examples); err != nil {
			return nil, ferrors.New(ferrors.ExternalBadResponse, "decoding test examples", err)
		}
		for _, e := range examples {
			r.record(n.Key(e.ID), e.Status)
		}
	case FormatSuites:
		var suites []suite
		if err := json.Unmarshal(raw, &suites); err != nil {
			return nil, ferrors.New(ferrors.ExternalBadResponse, "decoding test suites", err)
		}
		for _, s := range suites {
			key := n.Key(s.Name)
			for _, a := range s.AssertionResults {
				r.record(key, a.Status)
			}
		}
	}
	return r, nil
}

func (r *Report) record(key, status string) {
	c := r.outcomes[key]
	c.Count++
	if IsPending(status) {
		c.Pending++
	}
	r.outcomes[key] = c
}

func detect(doc interface{}) (Format, error) {
	loader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(exampleSchemaLoader, loader)
	if err != nil {
		return "", ferrors.New(ferrors.InternalError, "validating test report", err)
	}
	if result.Valid() {
		return FormatExamples, nil
	}

	result, err = gojsonschema.Validate(suiteSchemaLoader, loader)
	if err != nil {
		return "", ferrors.New(ferrors.InternalError, "validating test report", err)
	}
	if result.Valid() {
		return FormatSuites, nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return "", ferrors.Newf(ferrors.ExternalBadResponse,
		"test report matches no supported format").WithDetails(problems)
}
