package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodePayload parses the generation capability's structured response.
// Models wrap JSON in markdown fences or leading prose often enough that
// a single repair pass (fence stripping, then slicing to the outermost
// braces) is attempted before giving up.
func decodePayload(raw string) (*extractionPayload, error) {
	var payload extractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return &payload, nil
	}

	repaired := repairJSON(raw)
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &payload, nil
}

// repairJSON strips markdown code fences and surrounding prose
func repairJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
