// Package encoding packs per-cell surface names for the observer bootstrap:
// a palette in first-seen order plus base64 run-length pairs of palette
// indexes.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeSurfaces returns the palette and base64(uvarint index, uvarint run)
// pairs for cells, which must be in x-major order.
func EncodeSurfaces(cells []string) (palette []string, rle string) {
	index := map[string]uint64{}
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(cells); {
		name := cells[i]
		run := 1
		for i+run < len(cells) && cells[i+run] == name {
			run++
		}
		id, ok := index[name]
		if !ok {
			id = uint64(len(palette))
			index[name] = id
			palette = append(palette, name)
		}

		n := binary.PutUvarint(tmp[:], id)
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return palette, base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeSurfaces reverses EncodeSurfaces. limit caps the decoded cell count.
func DecodeSurfaces(palette []string, rle string, limit int) ([]string, error) {
	raw, err := base64.StdEncoding.DecodeString(rle)
	if err != nil {
		return nil, err
	}
	var out []string
	for i := 0; i < len(raw); {
		id, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if id >= uint64(len(palette)) {
			return nil, fmt.Errorf("palette index %d out of range (%d entries)", id, len(palette))
		}
		if run == 0 || uint64(len(out))+run > uint64(limit) {
			return nil, fmt.Errorf("run of %d at byte %d exceeds limit %d", run, i, limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, palette[id])
		}
	}
	return out, nil
}
