// Package params defines the parameter table shared by the control and
// real-time contexts: a fixed set of enumerated keys with range metadata,
// an atomically readable store, and a MIDI controller assignment map.
package params

// ID identifies one parameter. The set is fixed at compile time; hosts
// and tests enumerate it via Count and the Info table.
type ID int

const (
	InputGainDB ID = iota
	BloomPreBaseDB
	BloomPreDepthDB
	BloomPostBaseDB
	BloomPostDepthDB
	EnvAttackMs
	EnvReleaseMs
	EQ1FreqHz
	EQ1GainDB
	EQ1Q
	EQ2FreqHz
	EQ2GainDB
	EQ2Q
	EQ3FreqHz
	EQ3GainDB
	EQ3Q
	ReverbRoomSize
	ReverbDamping
	ReverbWet
	MasterGainDB

	numParams
)

// Count is the number of defined parameters.
const Count = int(numParams)

// Info carries a parameter's name and range metadata. Values written to
// the store are clamped to [Min, Max]; Default is the value installed at
// construction and by ResetToDefaults.
type Info struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
}

var infos = [numParams]Info{
	InputGainDB:      {Name: "inputGain", Default: 0, Min: -60, Max: 24},
	BloomPreBaseDB:   {Name: "bloomPreBase", Default: 0, Min: -24, Max: 24},
	BloomPreDepthDB:  {Name: "bloomPreDepth", Default: 6, Min: 0, Max: 24},
	BloomPostBaseDB:  {Name: "bloomPostBase", Default: 0, Min: -24, Max: 24},
	BloomPostDepthDB: {Name: "bloomPostDepth", Default: 3, Min: 0, Max: 24},
	EnvAttackMs:      {Name: "envAttack", Default: 5, Min: 0.1, Max: 500},
	EnvReleaseMs:     {Name: "envRelease", Default: 100, Min: 1, Max: 5000},
	EQ1FreqHz:        {Name: "eq1Freq", Default: 100, Min: 20, Max: 20000},
	EQ1GainDB:        {Name: "eq1Gain", Default: 0, Min: -24, Max: 24},
	EQ1Q:             {Name: "eq1Q", Default: 1, Min: 0.1, Max: 10},
	EQ2FreqHz:        {Name: "eq2Freq", Default: 1000, Min: 20, Max: 20000},
	EQ2GainDB:        {Name: "eq2Gain", Default: 0, Min: -24, Max: 24},
	EQ2Q:             {Name: "eq2Q", Default: 1, Min: 0.1, Max: 10},
	EQ3FreqHz:        {Name: "eq3Freq", Default: 8000, Min: 20, Max: 20000},
	EQ3GainDB:        {Name: "eq3Gain", Default: 0, Min: -24, Max: 24},
	EQ3Q:             {Name: "eq3Q", Default: 1, Min: 0.1, Max: 10},
	ReverbRoomSize:   {Name: "reverbRoomSize", Default: 0.5, Min: 0, Max: 1},
	ReverbDamping:    {Name: "reverbDamping", Default: 0.5, Min: 0, Max: 1},
	ReverbWet:        {Name: "reverbWet", Default: 0, Min: 0, Max: 1},
	MasterGainDB:     {Name: "masterGain", Default: 0, Min: -60, Max: 24},
}

// Valid reports whether id names a defined parameter.
func (id ID) Valid() bool {
	return id >= 0 && id < numParams
}

// Info returns the metadata for id. The zero Info is returned for
// invalid ids.
func (id ID) Info() Info {
	if !id.Valid() {
		return Info{}
	}

	return infos[id]
}

// String returns the parameter's name, or "invalid" for out-of-range ids.
func (id ID) String() string {
	if !id.Valid() {
		return "invalid"
	}

	return infos[id].Name
}

// ByName resolves a parameter name to its ID. The second return value
// reports whether the name is known.
func ByName(name string) (ID, bool) {
	for id := ID(0); id < numParams; id++ {
		if infos[id].Name == name {
			return id, true
		}
	}

	return 0, false
}
