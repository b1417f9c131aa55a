package transformer

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/zeebo/xxh3"
)

// IDPolicy selects what happens when a unique_id repeats within a run.
type IDPolicy string

const (
	// IDsOff disables the check.
	IDsOff IDPolicy = "off"
	// IDsWarn counts duplicates; the file still converts.
	IDsWarn IDPolicy = "warn"
	// IDsFail makes a duplicate fatal for the file that produced it.
	IDsFail IDPolicy = "fail"
)

// ParseIDPolicy maps a config value onto an IDPolicy. Empty means warn.
func ParseIDPolicy(s string) (IDPolicy, error) {
	switch p := IDPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return IDsWarn, nil
	case IDsOff, IDsWarn, IDsFail:
		return p, nil
	}
	return "", errors.Newf("unknown unique_ids policy %q (use off, warn or fail)", s)
}

// IDChecker remembers the unique_ids committed during a run as 128-bit xxh3
// digests. It only knows about files converted by this process; artifacts
// skipped because they already existed are not re-read.
type IDChecker struct {
	policy IDPolicy

	mu   sync.Mutex
	seen map[xxh3.Uint128]struct{}
}

// NewIDChecker returns a checker for policy. A nil checker or the off policy
// checks nothing.
func NewIDChecker(policy IDPolicy) *IDChecker {
	return &IDChecker{policy: policy, seen: make(map[xxh3.Uint128]struct{})}
}

// Policy returns the configured policy.
func (c *IDChecker) Policy() IDPolicy {
	if c == nil {
		return IDsOff
	}
	return c.policy
}

// Scope starts checking one file. IDs become visible to later files only
// after Commit, so a failed file leaves no trace in the checker.
func (c *IDChecker) Scope() *IDScope {
	if c == nil || c.policy == IDsOff {
		return nil
	}
	return &IDScope{parent: c, pending: make(map[xxh3.Uint128]struct{})}
}

// Len is the number of committed ids.
func (c *IDChecker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// IDScope is the per-file view of an IDChecker.
type IDScope struct {
	parent     *IDChecker
	pending    map[xxh3.Uint128]struct{}
	duplicates int64
	first      string
}

// Check records id. Under the fail policy a repeat returns *DuplicateIDError;
// under warn it is only counted. A nil scope accepts everything.
func (s *IDScope) Check(id string, line int) error {
	if s == nil {
		return nil
	}
	h := xxh3.HashString128(id)

	_, dup := s.pending[h]
	if !dup {
		s.parent.mu.Lock()
		_, dup = s.parent.seen[h]
		s.parent.mu.Unlock()
	}
	if !dup {
		s.pending[h] = struct{}{}
		return nil
	}

	s.duplicates++
	if s.first == "" {
		s.first = id
	}
	if s.parent.policy == IDsFail {
		return &DuplicateIDError{ID: id, Line: line}
	}
	return nil
}

// Duplicates returns how many repeats were seen and the first repeated id.
func (s *IDScope) Duplicates() (int64, string) {
	if s == nil {
		return 0, ""
	}
	return s.duplicates, s.first
}

// Commit publishes the scope's ids to the parent checker.
func (s *IDScope) Commit() {
	if s == nil {
		return
	}
	s.parent.mu.Lock()
	for h := range s.pending {
		s.parent.seen[h] = struct{}{}
	}
	s.parent.mu.Unlock()
	s.pending = nil
}
