package snapshot

import (
	"encoding/json"

	"featuremap/internal/output"
	"featuremap/internal/scoring"
)

// HealthDocument is .feature_map/health.json.
type HealthDocument struct {
	Features map[string]scoring.FeatureHealth `json:"features"`
}

// EncodeHealth renders the health document as deterministic, indented JSON.
func EncodeHealth(doc HealthDocument) ([]byte, error) {
	data, err := output.DeterministicEncodeIndented(doc, "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeHealth parses a health document.
func DecodeHealth(data []byte) (HealthDocument, error) {
	var doc HealthDocument
	err := json.Unmarshal(data, &doc)
	return doc, err
}
