package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurfacesRoundTrip(t *testing.T) {
	in := []string{"grass", "grass", "grass", "sand", "sand", "iron_deposit"}
	for i := 0; i < 50; i++ {
		in = append(in, "grass")
	}
	in = append(in, "", "coal_deposit", "coal_deposit")

	palette, rle := EncodeSurfaces(in)
	assert.Equal(t, []string{"grass", "sand", "iron_deposit", "", "coal_deposit"}, palette)

	out, err := DecodeSurfaces(palette, rle, len(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	palette, rle := EncodeSurfaces([]string{"a", "a", "b"})

	_, err := DecodeSurfaces(palette, rle, 2)
	assert.Error(t, err)
	_, err = DecodeSurfaces(palette[:1], rle, 10)
	assert.Error(t, err)
	_, err = DecodeSurfaces(palette, "!!", 10)
	assert.Error(t, err)

	empty, err := DecodeSurfaces(nil, "", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
