package naming

import (
	"strings"

	"github.com/moistari/rls"
)

// ReleaseHint is what a general release parser makes of a name the ripper
// rules did not recognise. It is logged so new rules can be added.
type ReleaseHint struct {
	Group      string
	Resolution string
	Title      string
}

// Hint parses name with rls.
func Hint(name string) ReleaseHint {
	r := rls.ParseString(name)
	return ReleaseHint{
		Group:      strings.TrimSpace(r.Group),
		Resolution: strings.TrimSpace(r.Resolution),
		Title:      strings.TrimSpace(r.Title),
	}
}
