package params

import "fmt"

const numCCs = 128

const unassigned = ID(-1)

// MIDIMap assigns MIDI continuous-controller numbers to parameters.
// An incoming controller value in [0, 127] scales linearly into the
// assigned parameter's range and lands in a Store via HandleCC.
//
// Assignment and dispatch belong to the control context; the map is not
// touched by the real-time path.
type MIDIMap struct {
	assign [numCCs]ID
}

// NewMIDIMap returns a map with no controllers assigned.
func NewMIDIMap() *MIDIMap {
	m := &MIDIMap{}
	for i := range m.assign {
		m.assign[i] = unassigned
	}

	return m
}

// Assign routes controller cc to parameter id, replacing any previous
// assignment for that controller.
func (m *MIDIMap) Assign(cc int, id ID) error {
	if cc < 0 || cc >= numCCs {
		return fmt.Errorf("params: cc number must be in [0, 127]: %d", cc)
	}

	if !id.Valid() {
		return fmt.Errorf("params: unknown parameter id: %d", int(id))
	}

	m.assign[cc] = id

	return nil
}

// Clear removes the assignment for controller cc, if any.
func (m *MIDIMap) Clear(cc int) {
	if cc < 0 || cc >= numCCs {
		return
	}

	m.assign[cc] = unassigned
}

// Lookup returns the parameter assigned to cc and whether one exists.
func (m *MIDIMap) Lookup(cc int) (ID, bool) {
	if cc < 0 || cc >= numCCs || m.assign[cc] == unassigned {
		return 0, false
	}

	return m.assign[cc], true
}

// HandleCC scales a controller value in [0, 127] into the assigned
// parameter's range and writes it to store. Out-of-range values are
// clamped first. Unassigned controllers are ignored; the return value
// reports whether a parameter was written.
func (m *MIDIMap) HandleCC(store *Store, cc, value int) bool {
	id, ok := m.Lookup(cc)
	if !ok {
		return false
	}

	if value < 0 {
		value = 0
	}
	if value > 127 {
		value = 127
	}

	info := infos[id]
	scaled := info.Min + (info.Max-info.Min)*float64(value)/127
	store.Set(id, scaled)

	return true
}
