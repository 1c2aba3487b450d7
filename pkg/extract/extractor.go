package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gophertribe/voxnote/pkg/ai"
	"github.com/gophertribe/voxnote/pkg/notes"
)

// ErrBadOutput marks a generative response that violates the extraction
// contract (non-parsable JSON, missing required fields, wrong value types).
// Unlike credential/quota conditions this is never recovered by the fallback.
var ErrBadOutput = errors.New("generative output violates extraction contract")

// Extractor runs the generative extraction/merge step, degrading to the
// deterministic fallback when the provider is unconfigured or reports a
// credential or credit condition.
type Extractor struct {
	gen ai.Generator
	now func() time.Time
}

// New creates an Extractor. gen may be nil, in which case every call uses the
// deterministic fallback.
func New(gen ai.Generator) *Extractor {
	return &Extractor{gen: gen, now: time.Now}
}

// Available reports whether a generative provider is configured.
func (x *Extractor) Available() bool {
	return x.gen != nil
}

// Extract merges a new transcript with the previous structured state and
// returns the complete next state. The boolean result reports whether the
// deterministic fallback produced it.
func (x *Extractor) Extract(ctx context.Context, transcript string, prev *notes.Extraction, extra string) (notes.Extraction, bool, error) {
	if x.gen == nil {
		return Fallback(transcript, prev, x.now()), true, nil
	}

	system := ExtractionPrompt(prev, extra, x.now())
	raw, err := x.gen.Generate(ctx, system, "Transcript: "+transcript)
	if err != nil {
		if ai.IsUnavailable(err) {
			return Fallback(transcript, prev, x.now()), true, nil
		}
		return notes.Extraction{}, false, fmt.Errorf("task extraction failed: %w", err)
	}

	var result notes.Extraction
	dec := json.NewDecoder(strings.NewReader(cleanJSON(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return notes.Extraction{}, false, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	if err := result.Validate(); err != nil {
		return notes.Extraction{}, false, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	result.Normalize()

	return result, false, nil
}

// MergeDocument merges a new transcript into the current markdown document and
// returns the complete replacement text. The boolean result reports whether
// the deterministic fallback produced it.
func (x *Extractor) MergeDocument(ctx context.Context, transcript, current, extra string) (string, bool, error) {
	if x.gen == nil {
		return fallbackDocument(transcript, current, x.now()), true, nil
	}

	system := DocumentPrompt(current, extra, x.now())
	raw, err := x.gen.Generate(ctx, system, "Transcript: "+transcript)
	if err != nil {
		if ai.IsUnavailable(err) {
			return fallbackDocument(transcript, current, x.now()), true, nil
		}
		return "", false, fmt.Errorf("document update failed: %w", err)
	}

	doc := cleanMarkdown(raw)
	if strings.TrimSpace(doc) == "" {
		return "", false, fmt.Errorf("%w: empty document", ErrBadOutput)
	}
	return doc, false, nil
}

func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return s
}

// cleanMarkdown strips a single wrapping code fence if the model added one
// despite instructions; anything else is taken verbatim.
func cleanMarkdown(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") && strings.HasSuffix(t, "```") {
		t = strings.TrimPrefix(t, "```markdown")
		t = strings.TrimPrefix(t, "```md")
		t = strings.TrimPrefix(t, "```")
		t = strings.TrimSuffix(t, "```")
		return strings.TrimSpace(t) + "\n"
	}
	return s
}
