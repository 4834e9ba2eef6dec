package zktrie

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFromBigRoundTrip(t *testing.T) {
	bi := big.NewInt(123456789)
	h := HashFromBig(bi)
	assert.Equal(t, bi, h.Big())
}

func TestHashFromBytesPadsAndTruncates(t *testing.T) {
	short := HashFromBytes([]byte{0x01, 0x02})
	assert.Equal(t, byte(0x01), short[30])
	assert.Equal(t, byte(0x02), short[31])
	for i := 0; i < 30; i++ {
		assert.Equal(t, byte(0), short[i])
	}

	long := make([]byte, 40)
	long[39] = 0xff
	h := HashFromBytes(long)
	assert.Equal(t, byte(0xff), h[31])
}

func TestPoseidonHashSchemeDeterministic(t *testing.T) {
	var a, b Hash
	a[31] = 1
	b[31] = 2

	h1, err := DefaultHashScheme.Hash(a, b)
	require.NoError(t, err)
	h2, err := DefaultHashScheme.Hash(a, b)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := DefaultHashScheme.Hash(b, a)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "hash of (a,b) must differ from (b,a)")
}

func TestDomainLeafIsOne(t *testing.T) {
	assert.Equal(t, big.NewInt(1), DomainLeaf.Big())
}
