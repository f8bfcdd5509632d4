// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/roi-brief/pkg/types"
)

// errEmptyReply marks a reply with no text at all.
var errEmptyReply = errors.New("empty model reply")

// cleanJSONResponse strips code fences and any prose around the outermost
// JSON object.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// parseInsight decodes and validates a model reply. Text fields are
// trimmed and blank pain points dropped before validation.
func parseInsight(reply string) (types.Insight, error) {
	content := cleanJSONResponse(reply)
	if content == "" {
		return types.Insight{}, errEmptyReply
	}

	var ins types.Insight
	if err := json.Unmarshal([]byte(content), &ins); err != nil {
		return types.Insight{}, fmt.Errorf("decoding reply: %w", err)
	}

	ins.ValueHypothesis = strings.TrimSpace(ins.ValueHypothesis)
	ins.NextBestAction = strings.TrimSpace(ins.NextBestAction)
	points := make([]string, 0, len(ins.PainPoints))
	for _, p := range ins.PainPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	ins.PainPoints = points

	if err := ins.Validate(); err != nil {
		return types.Insight{}, err
	}
	return ins, nil
}

// Marshal encodes an insight in its stored form.
func Marshal(ins types.Insight) ([]byte, error) {
	data, err := json.MarshalIndent(ins, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding insight: %w", err)
	}
	return append(data, '\n'), nil
}
