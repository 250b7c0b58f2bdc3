// pkg/patterns/patterns.go
//
// Pass sequence generation for the supported sanitization standards. Each
// call returns a fresh slice so concurrent jobs never share generator
// state; random descriptors carry no data, the writer draws bytes at fill
// time.

package patterns

import (
	"crypto/rand"

	cerr "github.com/cockroachdb/errors"
)

// Sequence returns the ordered pass descriptors for a standard.
func Sequence(s Standard) ([]Descriptor, error) {
	switch s {
	case StandardZeroFill:
		return []Descriptor{Fixed(0x00)}, nil
	case StandardOnePassRandom:
		return []Descriptor{Random()}, nil
	case StandardTwoPass:
		return []Descriptor{Fixed(0x00), Fixed(0xFF)}, nil
	case StandardThreePassDoD:
		return []Descriptor{Fixed(0x00), Fixed(0xFF), Random()}, nil
	case StandardFourPassComplement:
		return []Descriptor{
			Fixed(0x00),
			Fixed(0xFF),
			FixedPair(0x55, 0xAA),
			FixedPair(0xAA, 0x55),
		}, nil
	}
	return nil, cerr.Mark(cerr.Newf("unknown sanitization standard %q", s), ErrUnknownStandard)
}

// PassCount returns the number of passes a standard performs.
func PassCount(s Standard) (int, error) {
	seq, err := Sequence(s)
	if err != nil {
		return 0, err
	}
	return len(seq), nil
}

// Fill populates dst according to the descriptor. Random descriptors draw
// fresh bytes from crypto/rand on every invocation.
func Fill(dst []byte, d Descriptor) error {
	if d.Kind == KindRandom {
		if _, err := rand.Read(dst); err != nil {
			return cerr.Wrap(err, "draw random pattern bytes")
		}
		return nil
	}
	for i := range dst {
		dst[i] = d.Value
	}
	return nil
}

// Info describes one standard for operator-facing listings.
type Info struct {
	Name        Standard `json:"name"        yaml:"name"`
	Passes      int      `json:"passes"      yaml:"passes"`
	PassLabels  []string `json:"pass_labels" yaml:"pass_labels"`
	Description string   `json:"description" yaml:"description"`
}

// Catalog returns descriptions of every supported standard.
func Catalog() []Info {
	descriptions := map[Standard]string{
		StandardZeroFill:           "Single zero-fill pass. Fast clear for low-sensitivity media.",
		StandardOnePassRandom:      "Single cryptographically random pass.",
		StandardTwoPass:            "Zero-fill then one-fill.",
		StandardThreePassDoD:       "Zeros, ones, then random. DoD 5220.22-M style three-pass wipe.",
		StandardFourPassComplement: "Zeros, ones, then the 0x55/0xAA complement pair.",
	}

	out := make([]Info, 0, len(All()))
	for _, s := range All() {
		seq, _ := Sequence(s)
		labels := make([]string, len(seq))
		for i, d := range seq {
			labels[i] = d.Label()
		}
		out = append(out, Info{
			Name:        s,
			Passes:      len(seq),
			PassLabels:  labels,
			Description: descriptions[s],
		})
	}
	return out
}
