package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// Text strips all markup. Entities produced by the policy are unescaped
// so the stored value is plain text; templates escape it again on output.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// RichText keeps the safe subset of user markup.
func RichText(s string) string {
	return strings.TrimSpace(ugc.Sanitize(s))
}

// Lines applies Text to every element and drops the ones left empty.
func Lines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := Text(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
