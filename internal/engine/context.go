package engine

import "sync"

// scopeHandle is one entry of the "current context" stack (spec §4.10,
// §9's "Global current context slot" design note). It is tied to the
// owning task by construction: Enter/Exit are called from the same
// goroutine, and the stack lives on the Storage value, not a package
// global, so it cannot leak across unrelated Storage instances.
type scopeHandle struct {
	codeState string
}

// scopeStack is a small mutex-guarded stack rather than sync.Map, since
// entries are pushed/popped strictly LIFO by one owning task at a time and
// the values carried (a code-state string) are trivial to copy under a
// lock.
type scopeStack struct {
	mu      sync.Mutex
	entries []*scopeHandle
}

func (s *scopeStack) push(h *scopeHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, h)
}

func (s *scopeStack) pop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return
	}
	s.entries = s.entries[:len(s.entries)-1]
}

func (s *scopeStack) top() (*scopeHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[len(s.entries)-1], true
}

func (s *scopeStack) depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
