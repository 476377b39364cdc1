package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/skovand/lexica/internal/model"
)

// Renderer writes answers to files or stdout
type Renderer struct {
	includeMeta bool
}

// NewRenderer creates a renderer
func NewRenderer(includeMeta bool) *Renderer {
	return &Renderer{includeMeta: includeMeta}
}

// Render writes the answer as JSON to jsonPath and optionally as
// Markdown to mdPath. A path of "-" writes to stdout.
func (r *Renderer) Render(answer *model.Answer, jsonPath, mdPath string) error {
	if jsonPath != "" {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal answer: %w", err)
		}
		if err := writeOut(jsonPath, append(data, '\n')); err != nil {
			return fmt.Errorf("write JSON answer: %w", err)
		}
	}

	if mdPath != "" {
		if err := writeOut(mdPath, []byte(r.Markdown(answer))); err != nil {
			return fmt.Errorf("write Markdown answer: %w", err)
		}
	}

	return nil
}

// Markdown renders the answer as a human-readable report
func (r *Renderer) Markdown(answer *model.Answer) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", answer.Query)
	fmt.Fprintf(&b, "**Confidence:** %s\n\n", answer.Confidence)
	b.WriteString(answer.Summary)
	b.WriteString("\n")

	if len(answer.Facts) > 0 {
		b.WriteString("\n## Supporting facts\n\n")
		for _, f := range answer.Facts {
			fmt.Fprintf(&b, "- %s\n  > %q — `%s#%d`\n", f.Claim, f.Quote, f.SourceID, f.Ordinal)
		}
	}

	if len(answer.Unknowns) > 0 {
		b.WriteString("\n## Unknowns\n\n")
		for _, u := range answer.Unknowns {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}

	if len(answer.FollowUps) > 0 {
		b.WriteString("\n## Suggested follow-ups\n\n")
		for _, f := range answer.FollowUps {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if r.includeMeta && answer.Provider != "" {
		fmt.Fprintf(&b, "\n---\nGenerated by %s", answer.Provider)
		if answer.Model != "" {
			fmt.Fprintf(&b, "/%s", answer.Model)
		}
		fmt.Fprintf(&b, " at %s\n", answer.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	}

	return b.String()
}

func writeOut(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
