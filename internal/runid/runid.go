// Package runid generates and parses sortable run identifiers.
//
// IDs have the form run_<ms-since-epoch>_<random> where the random suffix
// is 8 characters drawn from [0-9a-z]. Within a process, ids are
// monotonically non-decreasing.
package runid

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	prefix       = "run_"
	suffixLen    = 8
	suffixAlpha  = "0123456789abcdefghijklmnopqrstuvwxyz"
	expectedSegs = 3
)

// Generator produces run ids. The zero value is not usable; use New.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	rng    *rand.Rand
}

// New creates a run id generator.
func New() *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- ids need uniqueness, not unpredictability
	}
}

// Next returns a fresh run id. The timestamp component never decreases,
// even if the wall clock steps backwards.
func (g *Generator) Next() string {
	g.mu.Lock()
	ms := time.Now().UnixMilli()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	g.lastMs = ms

	var b strings.Builder
	b.Grow(len(prefix) + 13 + 1 + suffixLen)
	b.WriteString(prefix)
	b.WriteString(strconv.FormatInt(ms, 10))
	b.WriteByte('_')
	for i := 0; i < suffixLen; i++ {
		b.WriteByte(suffixAlpha[g.rng.Intn(len(suffixAlpha))])
	}
	g.mu.Unlock()
	return b.String()
}

// Parsed holds the components recovered from a run id.
type Parsed struct {
	Timestamp time.Time
	Random    string
}

// Parse recovers the timestamp and random suffix from a run id.
func Parse(id string) (Parsed, error) {
	segs := strings.Split(id, "_")
	if len(segs) != expectedSegs || segs[0] != "run" {
		return Parsed{}, fmt.Errorf("runid: malformed id %q", id)
	}
	ms, err := strconv.ParseInt(segs[1], 10, 64)
	if err != nil || ms < 0 {
		return Parsed{}, fmt.Errorf("runid: malformed timestamp in %q", id)
	}
	random := segs[2]
	if len(random) != suffixLen {
		return Parsed{}, fmt.Errorf("runid: malformed suffix in %q", id)
	}
	for i := 0; i < len(random); i++ {
		if !strings.ContainsRune(suffixAlpha, rune(random[i])) {
			return Parsed{}, fmt.Errorf("runid: malformed suffix in %q", id)
		}
	}
	return Parsed{Timestamp: time.UnixMilli(ms), Random: random}, nil
}

// Valid reports whether id parses as a run id.
func Valid(id string) bool {
	_, err := Parse(id)
	return err == nil
}
