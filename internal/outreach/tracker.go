package outreach

import "sync"

// Tracker remembers which template ids were already rendered for each
// patient so consecutive messages vary. It lives only as long as the
// process; a restart starts over with an empty memory.
type Tracker struct {
	mu   sync.Mutex
	used map[int64]map[int64]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{used: make(map[int64]map[int64]struct{})}
}

// Seen reports whether templateID was already used for patientID.
func (t *Tracker) Seen(patientID, templateID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.used[patientID][templateID]
	return ok
}

// Record marks templateID as used for patientID.
func (t *Tracker) Record(patientID, templateID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.used[patientID] == nil {
		t.used[patientID] = make(map[int64]struct{})
	}
	t.used[patientID][templateID] = struct{}{}
}

// Clear forgets everything used for patientID. Called when the patient
// has exhausted every template of a type, so repeats become possible
// again (the recycle policy).
func (t *Tracker) Clear(patientID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.used, patientID)
}

// Used returns the template ids recorded for patientID.
func (t *Tracker) Used(patientID int64) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int64, 0, len(t.used[patientID]))
	for id := range t.used[patientID] {
		ids = append(ids, id)
	}
	return ids
}
