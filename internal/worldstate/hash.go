package worldstate

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// Attachment is the opaque extension slot used by script defined facts.
type Attachment interface {
	Hash() uint64
	Equal(other Attachment) bool
	Clone() Attachment
}

// AttachmentSatisfier may be implemented by an attachment held in a desired
// state, to take part in IsSatisfiedBy.
type AttachmentSatisfier interface {
	SatisfiedBy(current Attachment) bool
}

// Hash is a pure function of the ignore flags and the non-ignored values, so
// states that are Equal hash the same. Satisfy ops and epsilons are not part
// of the hash.
func (ws *WorldState) Hash() uint64 {
	h := fnv.New64a()
	buf := make([]byte, 0, 64)
	for _, k := range allKeys {
		v := ws.Value(k)
		buf = buf[:0]
		if v.Ignore {
			buf = append(buf, 0)
			_, _ = h.Write(buf)
			continue
		}
		buf = append(buf, 1)
		switch k.Kind {
		case KindBool:
			buf = append(buf, byte(boolInt(v.Bool)))
		case KindShort, KindUnsigned:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v.Int))
		case KindFloat:
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.Float))
		case KindOrigin:
			buf = appendVec(buf, v.Origin.Array())
		case KindOriginLazy, KindDualOriginLazy:
			if !v.Present {
				buf = append(buf, 0)
				break
			}
			buf = append(buf, 1)
			buf = appendVec(buf, v.Origin.Array())
			if k.Kind == KindDualOriginLazy {
				buf = appendVec(buf, v.Origin2.Array())
			}
		}
		_, _ = h.Write(buf)
	}
	sum := h.Sum64()
	if ws.attachment != nil {
		sum = sum*1099511628211 ^ ws.attachment.Hash()
	}
	return sum
}

func appendVec(buf []byte, a [3]float32) []byte {
	for _, f := range a {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}
