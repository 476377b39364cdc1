package synth

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodePayload parses the synthesis response, tolerating markdown
// fences and surrounding prose with one repair pass.
func decodePayload(raw string) (*synthesisPayload, error) {
	var payload synthesisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return &payload, nil
	}

	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}

	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &payload, nil
}
