package hashx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_KnownVector(t *testing.T) {
	// sha256("abc")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		Sum([]byte("abc")))
}

func TestSum_Deterministic(t *testing.T) {
	b := []byte("the same bytes, hashed twice")
	assert.Equal(t, Sum(b), Sum(b))
}

func TestSum_SingleBitDifference(t *testing.T) {
	a := []byte{0x00, 0x01, 0x02}
	b := []byte{0x00, 0x01, 0x03}
	assert.NotEqual(t, Sum(a), Sum(b))
}

func TestSum_LowercaseHexFixedLength(t *testing.T) {
	d := Sum([]byte("whatever"))
	assert.Len(t, d, 64)
	assert.Equal(t, strings.ToLower(d), d)
}

func TestSumReader_MatchesSum(t *testing.T) {
	payload := bytes.Repeat([]byte("roof"), 1<<12)
	d, n, err := SumReader(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, Sum(payload), d)
}

func TestSumReader_Empty(t *testing.T) {
	d, n, err := SumReader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, Sum(nil), d)
}
