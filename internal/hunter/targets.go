package hunter

import (
	"strings"

	"github.com/railwayapp/ctfhunter/internal/search"
)

// DefaultTargets are the filenames reported regardless of their content.
var DefaultTargets = []string{"flag.txt", "root.txt", "user.txt", "proof.txt"}

// TargetSet is an ordered, read-only set of filenames compared
// case-insensitively against base names.
type TargetSet struct {
	names []string
}

// NewTargetSet returns the default targets followed by any extra names.
// Blank names and case-insensitive duplicates are dropped.
func NewTargetSet(extra ...string) TargetSet {
	names := make([]string, 0, len(DefaultTargets)+len(extra))
	for _, name := range append(append([]string{}, DefaultTargets...), extra...) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		duplicate := false
		for _, existing := range names {
			if search.EqualFold(existing, name) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			names = append(names, name)
		}
	}
	return TargetSet{names: names}
}

// Match reports whether name equals one of the targets, ignoring ASCII case.
// Partial matches such as "myflag.txt" do not count.
func (t TargetSet) Match(name string) bool {
	for _, target := range t.names {
		if search.EqualFold(name, target) {
			return true
		}
	}
	return false
}

// Names returns a copy of the target names in order.
func (t TargetSet) Names() []string {
	return append([]string(nil), t.names...)
}

func (t TargetSet) String() string {
	return strings.Join(t.names, " / ")
}
