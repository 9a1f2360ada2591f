package trajectory

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// EventMask is an immutable set of sample indices into a trajectory, marking the samples eligible for a
// restricted evaluation (for instance the samples at which a localization event happened).
type EventMask struct {
	indices []int
	set     map[int]struct{}
}

// NewEventMask builds a mask from sample indices. Duplicates are collapsed and negative indices dropped.
func NewEventMask(indices []int) *EventMask {
	unique := lo.Uniq(lo.Filter(indices, func(i, _ int) bool { return i >= 0 }))
	sort.Ints(unique)
	set := make(map[int]struct{}, len(unique))
	for _, i := range unique {
		set[i] = struct{}{}
	}
	return &EventMask{indices: unique, set: set}
}

// NewEventMaskFromTimestamps builds a mask selecting the samples of traj whose timestamps are listed.
// Every timestamp must belong to traj.
func NewEventMaskFromTimestamps(traj *Trajectory, timestamps []int64) (*EventMask, error) {
	byTime := make(map[int64]int, traj.Len())
	for i, s := range traj.samples {
		byTime[s.Timestamp] = i
	}
	indices := make([]int, 0, len(timestamps))
	for _, ts := range timestamps {
		i, ok := byTime[ts]
		if !ok {
			return nil, errors.Errorf("event timestamp %d is not a sample of the trajectory", ts)
		}
		indices = append(indices, i)
	}
	return NewEventMask(indices), nil
}

// Contains reports whether index i is selected.
func (m *EventMask) Contains(i int) bool {
	_, ok := m.set[i]
	return ok
}

// Len returns the number of selected indices.
func (m *EventMask) Len() int {
	return len(m.indices)
}

// Indices returns the selected indices in increasing order.
func (m *EventMask) Indices() []int {
	out := make([]int, len(m.indices))
	copy(out, m.indices)
	return out
}
