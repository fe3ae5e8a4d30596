package browser

import (
	"strings"
	"sync"
)

// navTracker records main-frame navigations by document loader. Once a click
// arms it with the loader of the page being clicked, a URL wait only succeeds
// on a document committed by a later navigation.
type navTracker struct {
	mu       sync.Mutex
	url      string
	loader   string
	armed    bool
	baseline string
}

// record notes a committed main-frame navigation
func (t *navTracker) record(url, loader string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.url = url
	t.loader = loader
}

// arm makes the next check require a document other than baseline.
// Events for baseline that arrive late are not mistaken for the click's navigation.
func (t *navTracker) arm(baseline string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
	t.baseline = baseline
}

func (t *navTracker) disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
}

// reached reports whether the page is at want. When armed, current is
// ignored and only a newer document's URL counts; a successful check disarms.
func (t *navTracker) reached(current, want string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return sameURL(current, want)
	}
	if !t.movedLocked() || !sameURL(t.url, want) {
		return false
	}
	t.armed = false
	return true
}

// moved reports whether a new document was committed since arm
func (t *navTracker) moved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.armed || t.movedLocked()
}

func (t *navTracker) movedLocked() bool {
	return t.loader != "" && t.loader != t.baseline
}

func sameURL(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}
