package scripting

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"slices"

	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

// Facts holds the script defined facts of a world state. Booleans are stored
// as 1 and 0.
type Facts map[string]float64

var (
	_ worldstate.Attachment          = Facts(nil)
	_ worldstate.AttachmentSatisfier = Facts(nil)
)

func (f Facts) Hash() uint64 {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	h := fnv.New64a()
	var buf [8]byte
	for _, k := range keys {
		_, _ = h.Write([]byte(k))
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f[k]))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func (f Facts) Equal(other worldstate.Attachment) bool {
	o, ok := other.(Facts)
	if !ok {
		return len(f) == 0 && other == nil
	}
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (f Facts) Clone() worldstate.Attachment {
	c := make(Facts, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// SatisfiedBy reports whether current holds every fact of f, the desired
// facts, with the same value. A missing current fact reads as zero.
func (f Facts) SatisfiedBy(current worldstate.Attachment) bool {
	c, _ := current.(Facts)
	for k, v := range f {
		if c[k] != v {
			return false
		}
	}
	return true
}

// factsOf returns the facts of ws, attaching an empty set if it has none.
func factsOf(ws *worldstate.WorldState) Facts {
	if f, ok := ws.Attachment().(Facts); ok && f != nil {
		return f
	}
	f := Facts{}
	ws.SetAttachment(f)
	return f
}
