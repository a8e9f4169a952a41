package leads

import (
	"encoding/json"
	"strings"

	"github.com/lehoanglam20000/ai-agent/internal/store"
)

// parseAnalysis decodes the model's free-text output into a LeadAnalysis.
// The model is instructed to return bare minified JSON but is not guaranteed
// to honor that, so parsing is best-effort: direct parse first, then the
// outermost {...} substring (handles code fences and prose wrappers), and an
// empty analysis when nothing parses. The bool reports whether any JSON was
// recovered.
func parseAnalysis(raw string) (store.LeadAnalysis, bool) {
	var analysis store.LeadAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err == nil {
		return analysis, true
	}

	obj, ok := extractJSONObject(raw)
	if !ok {
		return store.LeadAnalysis{}, false
	}
	if err := json.Unmarshal([]byte(obj), &analysis); err != nil {
		return store.LeadAnalysis{}, false
	}
	return analysis, true
}

// extractJSONObject returns the substring spanning the first '{' through the
// last '}', the widest candidate object in mixed text.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
