// pkg/patterns/types.go

package patterns

import (
	"fmt"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

// Standard identifies a sanitization standard: a fixed, ordered sequence of
// overwrite passes. The set is closed; callers cannot define ad-hoc
// sequences.
type Standard string

const (
	// StandardZeroFill is a single 0x00 pass.
	StandardZeroFill Standard = "ZERO_FILL"
	// StandardOnePassRandom is a single cryptographically random pass.
	StandardOnePassRandom Standard = "ONE_PASS_RANDOM"
	// StandardTwoPass is 0x00 then 0xFF.
	StandardTwoPass Standard = "TWO_PASS"
	// StandardThreePassDoD is 0x00, 0xFF, then random (DoD 5220.22-M style).
	StandardThreePassDoD Standard = "THREE_PASS_DOD"
	// StandardFourPassComplement is 0x00, 0xFF, then the complement pair
	// 0x55 and 0xAA.
	StandardFourPassComplement Standard = "FOUR_PASS_COMPLEMENT"
)

// ErrUnknownStandard marks rejection of a standard outside the closed set.
var ErrUnknownStandard = cerr.New("unknown sanitization standard")

// All returns every supported standard in documentation order.
func All() []Standard {
	return []Standard{
		StandardZeroFill,
		StandardOnePassRandom,
		StandardTwoPass,
		StandardThreePassDoD,
		StandardFourPassComplement,
	}
}

var aliases = map[string]Standard{
	"ZERO":       StandardZeroFill,
	"ZEROFILL":   StandardZeroFill,
	"RANDOM":     StandardOnePassRandom,
	"ONE_PASS":   StandardOnePassRandom,
	"TWO":        StandardTwoPass,
	"DOD":        StandardThreePassDoD,
	"DOD3":       StandardThreePassDoD,
	"THREE":      StandardThreePassDoD,
	"COMP":       StandardFourPassComplement,
	"FOUR":       StandardFourPassComplement,
	"COMPLEMENT": StandardFourPassComplement,
}

// ParseStandard resolves user input (canonical name or alias, any case,
// dashes or underscores) to a Standard.
func ParseStandard(input string) (Standard, error) {
	norm := strings.ToUpper(strings.TrimSpace(input))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")

	for _, s := range All() {
		if norm == string(s) {
			return s, nil
		}
	}
	if s, ok := aliases[norm]; ok {
		return s, nil
	}

	return "", cerr.WithHint(
		cerr.Mark(cerr.Newf("unknown sanitization standard %q", input), ErrUnknownStandard),
		"run 'scour inspect standards' to list supported standards")
}

// Kind distinguishes fixed-byte passes from random passes.
type Kind int

const (
	// KindFixed writes a single repeated byte value.
	KindFixed Kind = iota
	// KindRandom writes cryptographically random data, drawn fresh for
	// every buffer fill. Random pass content is never pregenerated or
	// reused between extents.
	KindRandom
)

// Descriptor is one immutable overwrite pass pattern.
type Descriptor struct {
	Kind       Kind
	Value      byte // repeated byte for KindFixed
	Complement byte // partner byte when part of a complement pair
	Paired     bool
}

// Fixed returns a fixed-byte descriptor.
func Fixed(v byte) Descriptor {
	return Descriptor{Kind: KindFixed, Value: v}
}

// FixedPair returns a fixed-byte descriptor annotated with its bit
// complement partner.
func FixedPair(v, partner byte) Descriptor {
	return Descriptor{Kind: KindFixed, Value: v, Complement: partner, Paired: true}
}

// Random returns the random-pass descriptor.
func Random() Descriptor {
	return Descriptor{Kind: KindRandom}
}

// Label renders the audit string recorded in pass records and
// certificates: "0x00-fill", "0xFF-fill", "random".
func (d Descriptor) Label() string {
	if d.Kind == KindRandom {
		return "random"
	}
	return fmt.Sprintf("0x%02X-fill", d.Value)
}

// String implements fmt.Stringer for logs.
func (d Descriptor) String() string {
	if d.Paired {
		return fmt.Sprintf("%s (complement of 0x%02X)", d.Label(), d.Complement)
	}
	return d.Label()
}
