package id

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNanoID(t *testing.T) {
	_, err := ClassicNanoID(1)
	require.Error(t, err)
	_, err = ClassicNanoID(256)
	require.Error(t, err)

	nanoID, err := ClassicNanoID(8)
	require.NoError(t, err)
	seen := make(map[string]struct{}, 1000)
	// Crosses the pre-allocated bytes several times.
	for i := 0; i < 1000; i++ {
		v := nanoID()
		require.Len(t, v, 8)
		for _, r := range v {
			require.Contains(t, string(classicNanoIDAlphabet[:]), string(r))
		}
		seen[v] = struct{}{}
	}
	require.Greater(t, len(seen), 990)
}

func TestPrefixedMonotonicID(t *testing.T) {
	gen, err := PrefixedMonotonicID(6)
	require.NoError(t, err)
	first := gen.Str()
	// The alphabet holds '-', so the prefix is cut by length.
	prefix := first[:6]
	require.Equal(t, byte('-'), first[6])
	require.Equal(t, "1", first[7:])
	require.Equal(t, prefix+"-2", gen.Str())
	require.Equal(t, uint64(3), gen.Number())

	_, err = PrefixedMonotonicID(0)
	require.Error(t, err)
}

func BenchmarkNanoID(b *testing.B) {
	nanoID, err := ClassicNanoID(8)
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = nanoID()
	}
	b.ReportAllocs()
}
