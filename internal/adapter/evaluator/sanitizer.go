package evaluator

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// pairedTag matches an opening tag, its content and the closing tag with the
// same name. The backreference is why regexp2 is used instead of regexp.
var pairedTag = regexp2.MustCompile(`<([A-Za-z_][\w\-]*)\b[^>]*>[\s\S]*?</\1\s*>`, regexp2.IgnoreCase)

func init() {
	pairedTag.MatchTimeout = 250 * time.Millisecond
}

// Sanitizer removes delimiter-looking markup from respondent text.
type Sanitizer interface {
	Sanitize(text string) (string, error)
}

// TagStripper strips every paired delimiter together with its content,
// repeating until nested pairs are gone.
type TagStripper struct{}

const maxStripPasses = 16

func (TagStripper) Sanitize(text string) (string, error) {
	out := text
	for i := 0; i < maxStripPasses; i++ {
		next, err := pairedTag.Replace(out, "", -1, -1)
		if err != nil {
			return "", fmt.Errorf("failed to sanitize answer: %w", err)
		}
		if next == out {
			return next, nil
		}
		out = next
	}
	return out, nil
}
