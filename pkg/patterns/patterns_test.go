// pkg/patterns/patterns_test.go

package patterns

import (
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencePerStandard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		standard Standard
		labels   []string
	}{
		{"zero fill", StandardZeroFill, []string{"0x00-fill"}},
		{"one pass random", StandardOnePassRandom, []string{"random"}},
		{"two pass", StandardTwoPass, []string{"0x00-fill", "0xFF-fill"}},
		{"three pass dod", StandardThreePassDoD, []string{"0x00-fill", "0xFF-fill", "random"}},
		{"four pass complement", StandardFourPassComplement, []string{"0x00-fill", "0xFF-fill", "0x55-fill", "0xAA-fill"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			seq, err := Sequence(tt.standard)
			require.NoError(t, err)
			require.Len(t, seq, len(tt.labels))
			for i, d := range seq {
				assert.Equal(t, tt.labels[i], d.Label(), "pass %d", i)
			}
		})
	}
}

func TestSequenceUnknownStandard(t *testing.T) {
	t.Parallel()

	_, err := Sequence(Standard("GUTMANN_35"))
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrUnknownStandard))
}

func TestSequenceReturnsFreshSlices(t *testing.T) {
	t.Parallel()

	first, err := Sequence(StandardThreePassDoD)
	require.NoError(t, err)

	// Mutating one call's result must not leak into the next.
	first[0] = Fixed(0x42)

	second, err := Sequence(StandardThreePassDoD)
	require.NoError(t, err)
	assert.Equal(t, "0x00-fill", second[0].Label())
}

func TestParseStandard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Standard
	}{
		{"ZERO_FILL", StandardZeroFill},
		{"zero_fill", StandardZeroFill},
		{"zero", StandardZeroFill},
		{"three-pass-dod", StandardThreePassDoD},
		{"dod3", StandardThreePassDoD},
		{"DoD", StandardThreePassDoD},
		{"random", StandardOnePassRandom},
		{"two-pass", StandardTwoPass},
		{"four_pass_complement", StandardFourPassComplement},
		{"complement", StandardFourPassComplement},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseStandard(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStandard("35-pass-gutmann")
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrUnknownStandard))
}

func TestFillFixed(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 512)
	require.NoError(t, Fill(buf, Fixed(0xFF)))
	for i, b := range buf {
		require.Equal(t, byte(0xFF), b, "offset %d", i)
	}
}

func TestFillRandomDrawsFreshBytes(t *testing.T) {
	t.Parallel()

	a := make([]byte, 4096)
	b := make([]byte, 4096)
	require.NoError(t, Fill(a, Random()))
	require.NoError(t, Fill(b, Random()))

	// Two draws of 4 KiB colliding would indicate reuse.
	assert.NotEqual(t, a, b)

	zeros := make([]byte, 4096)
	assert.NotEqual(t, zeros, a)
}

func TestCatalogCoversAllStandards(t *testing.T) {
	t.Parallel()

	catalog := Catalog()
	require.Len(t, catalog, len(All()))

	byName := make(map[Standard]Info, len(catalog))
	for _, info := range catalog {
		byName[info.Name] = info
	}

	dod := byName[StandardThreePassDoD]
	assert.Equal(t, 3, dod.Passes)
	assert.Equal(t, []string{"0x00-fill", "0xFF-fill", "random"}, dod.PassLabels)
	assert.NotEmpty(t, dod.Description)
}

func TestComplementPairAnnotation(t *testing.T) {
	t.Parallel()

	seq, err := Sequence(StandardFourPassComplement)
	require.NoError(t, err)

	assert.True(t, seq[2].Paired)
	assert.Equal(t, byte(0xAA), seq[2].Complement)
	assert.True(t, seq[3].Paired)
	assert.Equal(t, byte(0x55), seq[3].Complement)
	assert.Contains(t, seq[2].String(), "complement of 0xAA")
}
