package synthesize

import (
	"encoding/json"

	"citywatch/internal/domain/event"
	"citywatch/internal/domain/narrative"
)

// response is the synthesis schema the narrative service is asked to return.
// Confidence is a pointer so an absent field can be told apart from zero.
type response struct {
	Title             string   `json:"title"`
	Summary           string   `json:"summary"`
	SuggestedAction   string   `json:"suggestedAction"`
	EventType         string   `json:"eventType"`
	Severity          string   `json:"severity"`
	Confidence        *float64 `json:"confidence"`
	EstimatedDuration string   `json:"estimatedDuration"`
	KeyInsights       []string `json:"keyInsights"`
}

// parseResponse locates and decodes the JSON object in a raw narrative
// response. A missing or undecodable block is a structural failure; field
// content is validated later and never fails the parse.
func parseResponse(raw string) (response, error) {
	block, ok := narrative.ExtractJSONBlock(raw)
	if !ok {
		return response{}, event.ErrSynthesisParse
	}

	var resp response
	if err := json.Unmarshal([]byte(block), &resp); err != nil {
		return response{}, event.ErrSynthesisParse
	}

	return resp, nil
}
