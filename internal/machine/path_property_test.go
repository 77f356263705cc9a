package machine

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPathProperties exercises path normalization invariants over
// generated keys.
func TestPathProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	segment := gen.RegexMatch(`^[a-zA-Z0-9_-]+$`)

	// Property: '.' and ':' delimited spellings of the same segments
	// normalize to the identical sequence.
	properties.Property("delimiter independence", prop.ForAll(
		func(segments []string) bool {
			if len(segments) == 0 {
				return true
			}
			dotted, err1 := ParsePath(strings.Join(segments, "."))
			colon, err2 := ParsePath(strings.Join(segments, ":"))
			if err1 != nil || err2 != nil {
				return false
			}
			return dotted.Equal(colon)
		},
		gen.SliceOfN(4, segment),
	))

	// Property: normalization is idempotent through the canonical form.
	properties.Property("idempotence", prop.ForAll(
		func(segments []string) bool {
			if len(segments) == 0 {
				return true
			}
			p, err := ParsePath(strings.Join(segments, "."))
			if err != nil {
				return false
			}
			again, err := ParsePath(p.String())
			if err != nil {
				return false
			}
			return p.Equal(again)
		},
		gen.SliceOfN(3, segment),
	))

	// Property: no normalized path ever contains an empty segment.
	properties.Property("no empty segments", prop.ForAll(
		func(raw string) bool {
			p, err := ParsePath(raw)
			if err != nil {
				return raw == "" || strings.Trim(raw, ".:") == ""
			}
			for _, seg := range p {
				if seg == "" {
					return false
				}
			}
			return true
		},
		gen.RegexMatch(`^[a-zA-Z0-9_.:-]*$`),
	))

	properties.TestingRun(t)
}
