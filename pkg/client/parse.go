package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/image-composer/pkg/types"
)

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// subjectEnvelope accepts both {"primary": {...}} and a bare subject object.
type subjectEnvelope struct {
	Primary *types.Subject `json:"primary"`
	types.Subject
}

// ParseSubject extracts a subject from a model reply. Replies that are not
// usable JSON yield a centred zero-confidence subject rather than an error;
// models routinely wrap or mangle their output.
func ParseSubject(raw string) *types.Subject {
	raw = SanitizeJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		s := types.CenteredSubject("none")
		return &s
	}

	var env subjectEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s := types.CenteredSubject("none")
		return &s
	}

	s := env.Subject
	if env.Primary != nil {
		s = *env.Primary
	}
	s = normalizeSubject(s)
	return &s
}

// SanitizeJSON removes code fences, comments and trailing commas and keeps
// only the outermost {...}.
func SanitizeJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

func normalizeSubject(s types.Subject) types.Subject {
	s.Label = strings.ToLower(strings.TrimSpace(s.Label))
	if s.Label == "" {
		s.Label = "subject"
	}
	s.Confidence = clamp(s.Confidence, 0, 1)

	// some models answer in percent
	if s.Box.X > 1 || s.Box.Y > 1 || s.Box.W > 1 || s.Box.H > 1 {
		s.Box = types.Box{X: s.Box.X / 100, Y: s.Box.Y / 100, W: s.Box.W / 100, H: s.Box.H / 100}
	}
	s.Box.X = clamp(s.Box.X, 0, 1)
	s.Box.Y = clamp(s.Box.Y, 0, 1)
	s.Box.W = clamp(s.Box.W, 0, 1-s.Box.X)
	s.Box.H = clamp(s.Box.H, 0, 1-s.Box.Y)

	if s.Cx > 1 || s.Cy > 1 {
		s.Cx, s.Cy = s.Cx/100, s.Cy/100
	}
	if s.Cx == 0 && s.Cy == 0 {
		if s.Box.W > 0 && s.Box.H > 0 {
			s.Cx, s.Cy = s.Box.Center()
		} else {
			s.Cx, s.Cy = 0.5, 0.5
		}
	}
	s.Cx = clamp(s.Cx, 0, 1)
	s.Cy = clamp(s.Cy, 0, 1)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
