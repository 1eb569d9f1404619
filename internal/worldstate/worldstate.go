// Package worldstate implements the fact model used by the bot planner.
//
// A WorldState is a fixed set of named, typed variables. Each variable carries
// its value, an ignore flag, and the SatisfyOp used when the state is a goal.
// Ignored variables take no part in satisfaction, hashing or equality.
package worldstate

import (
	"fmt"
	"strings"

	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

// DefaultEpsilon is the tolerance, in world units, that origin variables
// start with.
const DefaultEpsilon float32 = 32

type header struct {
	ignore bool
	op     SatisfyOp
}

type boolVar struct {
	header
	value bool
}

type shortVar struct {
	header
	value int16
}

type unsignedVar struct {
	header
	value uint32
}

type floatVar struct {
	header
	value float32
}

type originVar struct {
	header
	value   geom.Vec3
	epsilon float32
}

type lazyVar struct {
	header
	value   geom.Vec3
	epsilon float32
	status  LazyStatus
}

type dualVar struct {
	header
	value   geom.Vec3
	value2  geom.Vec3
	epsilon float32
	status  LazyStatus
}

// OriginProvider computes a lazy origin. ok reports whether one exists.
type OriginProvider func() (origin geom.Vec3, ok bool)

// DualOriginProvider computes a lazy pair of origins.
type DualOriginProvider func() (origin, origin2 geom.Vec3, ok bool)

// WorldState is a snapshot of facts, or a desired set of facts when used as a
// goal. The zero value is not usable; call New.
type WorldState struct {
	bools    [numBools]boolVar
	shorts   [numShorts]shortVar
	unsigned [numUnsigned]unsignedVar
	floats   [numFloats]floatVar
	origins  [numOrigins]originVar
	lazy     [numOriginLazy]lazyVar
	dual     [numDualOriginLazy]dualVar

	lazyProviders [numOriginLazy]OriginProvider
	dualProviders [numDualOriginLazy]DualOriginProvider

	attachment Attachment
}

// New returns a WorldState with every variable ignored.
func New() *WorldState {
	ws := &WorldState{}
	for i := range ws.origins {
		ws.origins[i].epsilon = DefaultEpsilon
	}
	for i := range ws.lazy {
		ws.lazy[i].epsilon = DefaultEpsilon
	}
	for i := range ws.dual {
		ws.dual[i].epsilon = DefaultEpsilon
	}
	ws.SetIgnoreAll(true)
	return ws
}

// SetIgnoreAll sets the ignore flag of every variable.
func (ws *WorldState) SetIgnoreAll(ignore bool) {
	for i := range ws.bools {
		ws.bools[i].ignore = ignore
	}
	for i := range ws.shorts {
		ws.shorts[i].ignore = ignore
	}
	for i := range ws.unsigned {
		ws.unsigned[i].ignore = ignore
	}
	for i := range ws.floats {
		ws.floats[i].ignore = ignore
	}
	for i := range ws.origins {
		ws.origins[i].ignore = ignore
	}
	for i := range ws.lazy {
		ws.lazy[i].ignore = ignore
	}
	for i := range ws.dual {
		ws.dual[i].ignore = ignore
	}
}

// Clone returns a deep copy. Lazy providers are shared, resolved lazy values
// are kept.
func (ws *WorldState) Clone() *WorldState {
	c := *ws
	if ws.attachment != nil {
		c.attachment = ws.attachment.Clone()
	}
	return &c
}

// Attachment returns the script extension slot, or nil.
func (ws *WorldState) Attachment() Attachment { return ws.attachment }

// SetAttachment replaces the script extension slot.
func (ws *WorldState) SetAttachment(a Attachment) { ws.attachment = a }

// SetOriginProvider installs the function used to resolve a lazy origin and
// resets the variable to unresolved.
func (ws *WorldState) SetOriginProvider(id OriginLazyID, p OriginProvider) {
	ws.lazyProviders[id] = p
	ws.lazy[id].status = LazyUnknown
}

// SetDualOriginProvider is SetOriginProvider for dual origins.
func (ws *WorldState) SetDualOriginProvider(id DualOriginLazyID, p DualOriginProvider) {
	ws.dualProviders[id] = p
	ws.dual[id].status = LazyUnknown
}

func (ws *WorldState) resolveLazy(id OriginLazyID) *lazyVar {
	v := &ws.lazy[id]
	if v.status != LazyUnknown {
		return v
	}
	v.status = LazyAbsent
	if p := ws.lazyProviders[id]; p != nil {
		if origin, ok := p(); ok {
			v.value = origin
			v.status = LazyPresent
		}
	}
	return v
}

func (ws *WorldState) resolveDual(id DualOriginLazyID) *dualVar {
	v := &ws.dual[id]
	if v.status != LazyUnknown {
		return v
	}
	v.status = LazyAbsent
	if p := ws.dualProviders[id]; p != nil {
		if a, b, ok := p(); ok {
			v.value, v.value2 = a, b
			v.status = LazyPresent
		}
	}
	return v
}

// IsSatisfiedBy reports whether current meets every non-ignored variable of
// ws, which acts as the desired state.
func (ws *WorldState) IsSatisfiedBy(current *WorldState) bool {
	for _, k := range allKeys {
		desired := ws.Value(k)
		if desired.Ignore {
			continue
		}
		if !current.Value(k).Satisfies(desired) {
			return false
		}
	}
	if s, ok := ws.attachment.(AttachmentSatisfier); ok {
		return s.SatisfiedBy(current.attachment)
	}
	return true
}

// UnsatisfiedCount returns the number of non-ignored variables of ws that
// current fails to meet.
func (ws *WorldState) UnsatisfiedCount(current *WorldState) int {
	n := 0
	for _, k := range allKeys {
		desired := ws.Value(k)
		if desired.Ignore {
			continue
		}
		if !current.Value(k).Satisfies(desired) {
			n++
		}
	}
	if s, ok := ws.attachment.(AttachmentSatisfier); ok && !s.SatisfiedBy(current.attachment) {
		n++
	}
	return n
}

// Equal reports whether both states have the same ignore flags and the same
// values for every non-ignored variable.
func (ws *WorldState) Equal(o *WorldState) bool {
	if ws == o {
		return true
	}
	if o == nil {
		return false
	}
	for _, k := range allKeys {
		if !ws.Value(k).sameAs(o.Value(k)) {
			return false
		}
	}
	switch {
	case ws.attachment == nil && o.attachment == nil:
		return true
	case ws.attachment == nil || o.attachment == nil:
		return false
	}
	return ws.attachment.Equal(o.attachment)
}

func (ws *WorldState) String() string {
	var sb strings.Builder
	sb.WriteString("WorldState{")
	first := true
	for _, k := range allKeys {
		v := ws.Value(k)
		if v.Ignore {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%s%s%s", k, opSymbol(v.Op), v.valueString())
	}
	sb.WriteString("}")
	return sb.String()
}

func opSymbol(op SatisfyOp) string {
	switch op {
	case NE:
		return "!="
	case LS:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	}
	return "="
}
