package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"beltworks.dev/internal/sim/field"
)

// stateDigest hashes every built cell's view. Two worlds built from the same
// configs digest equal at every tick.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	w.field.Each(func(c *field.Cell) {
		if c.Empty() {
			return
		}
		p := c.Pos()
		digestWriteI64(h, &tmp, int64(p.X))
		digestWriteI64(h, &tmp, int64(p.Y))
		b, err := json.Marshal(c.Building().View())
		if err != nil {
			// Views are plain data; this cannot happen.
			panic(err)
		}
		digestWriteU64(h, &tmp, uint64(len(b)))
		h.Write(b)
	})
	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}
