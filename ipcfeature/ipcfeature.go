// Package ipcfeature defines the typed feature-flag vocabulary negotiated
// at handshake time and the set operations the façade uses to gate calls.
// A Feature is a small integer with a canonical wire string; recognized
// flags are listed in a name table, and anything absent from the table is
// Unknown.
package ipcfeature

// Feature is a recognized IPC capability flag.
type Feature int

const (
	Unknown Feature = iota
	AssetsBasic
	BuildMin
	EventsLog
	OpsProgress
	AssetsAdvanced
	BuildFull
	EventsFull
)

var names = map[Feature]string{
	AssetsBasic:    "assets.basic",
	BuildMin:       "build.min",
	EventsLog:      "events.log",
	OpsProgress:    "ops.progress",
	AssetsAdvanced: "assets.advanced",
	BuildFull:      "build.full",
	EventsFull:     "events.full",
}

var byName = func() map[string]Feature {
	m := make(map[string]Feature, len(names))
	for f, n := range names {
		m[n] = f
	}
	return m
}()

func (f Feature) String() string {
	if n, ok := names[f]; ok {
		return n
	}
	return "unknown"
}

// Parse maps a wire string to its Feature. Unrecognized strings map to
// Unknown, not an error — callers are expected to drop Unknown entries
// during negotiation rather than fail on them.
func Parse(s string) Feature {
	if f, ok := byName[s]; ok {
		return f
	}
	return Unknown
}

// Set is an unordered collection of recognized features. The zero value is
// an empty set ready to use.
type Set struct {
	m map[Feature]struct{}
}

// NewSet builds a Set from wire strings, silently dropping unrecognized
// entries (and the Unknown sentinel itself, since a set can never usefully
// contain "unknown").
func NewSet(wire ...string) Set {
	s := Set{m: make(map[Feature]struct{}, len(wire))}
	for _, w := range wire {
		if f := Parse(w); f != Unknown {
			s.m[f] = struct{}{}
		}
	}
	return s
}

// Has reports whether f is a member of the set.
func (s Set) Has(f Feature) bool {
	if s.m == nil {
		return false
	}
	_, ok := s.m[f]
	return ok
}

// Intersect returns the features present in both sets. Used at handshake
// time: the client proposes its desired set, and stores the intersection
// with whatever the server actually accepted in Welcome.
func (s Set) Intersect(other Set) Set {
	out := Set{m: make(map[Feature]struct{})}
	for f := range s.m {
		if other.Has(f) {
			out.m[f] = struct{}{}
		}
	}
	return out
}

// Wire renders the set back to its wire string form, for embedding in Hello.
func (s Set) Wire() []string {
	out := make([]string, 0, len(s.m))
	for f := range s.m {
		out = append(out, f.String())
	}
	return out
}

// Len reports the number of recognized features in the set.
func (s Set) Len() int {
	return len(s.m)
}
