package scan

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Session is the transient state of one discovery run. A new run starts a
// new Session.
type Session struct {
	ID            string              `json:"id"`
	Phase         Phase               `json:"phase"`
	PhaseStarted  map[Phase]time.Time `json:"phaseStarted"`
	BroadcastHits int                 `json:"broadcastHits"`
	DirectHits    int                 `json:"directHits"`
	Absent        int                 `json:"absent"`
	ParseFailures int                 `json:"parseFailures"`

	pending map[int]struct{}
}

func newSession() *Session {
	return &Session{
		ID:           uuid.NewString(),
		Phase:        PhaseIdle,
		PhaseStarted: make(map[Phase]time.Time),
		pending:      make(map[int]struct{}),
	}
}

func (s *Session) enter(p Phase, at time.Time) {
	s.Phase = p
	s.PhaseStarted[p] = at
}

func (s *Session) addPending(hosts []int) {
	for _, n := range hosts {
		s.pending[n] = struct{}{}
	}
}

func (s *Session) resolve(n int) {
	delete(s.pending, n)
}

// IsPending reports whether host octet n is still unresolved.
func (s *Session) IsPending(n int) bool {
	_, ok := s.pending[n]
	return ok
}

// PendingHosts returns the unresolved host octets in ascending order.
func (s *Session) PendingHosts() []int {
	out := make([]int, 0, len(s.pending))
	for n := range s.pending {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// clone returns a copy that shares nothing with s.
func (s *Session) clone() Session {
	out := *s
	out.PhaseStarted = make(map[Phase]time.Time, len(s.PhaseStarted))
	for k, v := range s.PhaseStarted {
		out.PhaseStarted[k] = v
	}
	out.pending = make(map[int]struct{}, len(s.pending))
	for k := range s.pending {
		out.pending[k] = struct{}{}
	}
	return out
}
