package worldstate

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

// ErrKindMismatch is returned by SetValue when the value kind does not match
// the variable.
var ErrKindMismatch = errors.New("worldstate: value kind mismatch")

// Value is a kind-tagged copy of one variable. Only the fields matching Kind
// are meaningful.
type Value struct {
	Kind   Kind
	Ignore bool
	Op     SatisfyOp

	Bool    bool
	Int     int64
	Float   float32
	Origin  geom.Vec3
	Origin2 geom.Vec3
	Epsilon float32
	Present bool
}

// Value returns a copy of the variable addressed by k. Lazy variables are
// resolved.
func (ws *WorldState) Value(k Key) Value {
	switch k.Kind {
	case KindBool:
		v := &ws.bools[k.Index]
		return Value{Kind: k.Kind, Ignore: v.ignore, Op: v.op, Bool: v.value}
	case KindShort:
		v := &ws.shorts[k.Index]
		return Value{Kind: k.Kind, Ignore: v.ignore, Op: v.op, Int: int64(v.value)}
	case KindUnsigned:
		v := &ws.unsigned[k.Index]
		return Value{Kind: k.Kind, Ignore: v.ignore, Op: v.op, Int: int64(v.value)}
	case KindFloat:
		v := &ws.floats[k.Index]
		return Value{Kind: k.Kind, Ignore: v.ignore, Op: v.op, Float: v.value}
	case KindOrigin:
		v := &ws.origins[k.Index]
		return Value{Kind: k.Kind, Ignore: v.ignore, Op: v.op, Origin: v.value, Epsilon: v.epsilon, Present: true}
	case KindOriginLazy:
		v := ws.resolveLazy(OriginLazyID(k.Index))
		return Value{
			Kind: k.Kind, Ignore: v.ignore, Op: v.op,
			Origin: v.value, Epsilon: v.epsilon, Present: v.status == LazyPresent,
		}
	case KindDualOriginLazy:
		v := ws.resolveDual(DualOriginLazyID(k.Index))
		return Value{
			Kind: k.Kind, Ignore: v.ignore, Op: v.op,
			Origin: v.value, Origin2: v.value2, Epsilon: v.epsilon, Present: v.status == LazyPresent,
		}
	}
	panic(fmt.Sprintf("worldstate: bad key %v", k))
}

// SetValue overwrites the variable addressed by k, including its ignore flag
// and satisfy op. A zero Epsilon keeps the current one.
func (ws *WorldState) SetValue(k Key, val Value) error {
	if val.Kind != k.Kind {
		return fmt.Errorf("%w: %s is %s, got %s", ErrKindMismatch, k, k.Kind, val.Kind)
	}
	h := header{ignore: val.Ignore, op: val.Op}
	switch k.Kind {
	case KindBool:
		ws.bools[k.Index] = boolVar{header: h, value: val.Bool}
	case KindShort:
		ws.shorts[k.Index] = shortVar{header: h, value: int16(val.Int)}
	case KindUnsigned:
		ws.unsigned[k.Index] = unsignedVar{header: h, value: uint32(val.Int)}
	case KindFloat:
		ws.floats[k.Index] = floatVar{header: h, value: val.Float}
	case KindOrigin:
		v := &ws.origins[k.Index]
		v.header, v.value = h, val.Origin
		if val.Epsilon > 0 {
			v.epsilon = val.Epsilon
		}
	case KindOriginLazy:
		v := &ws.lazy[k.Index]
		v.header, v.value = h, val.Origin
		v.status = presentStatus(val.Present)
		if val.Epsilon > 0 {
			v.epsilon = val.Epsilon
		}
	case KindDualOriginLazy:
		v := &ws.dual[k.Index]
		v.header, v.value, v.value2 = h, val.Origin, val.Origin2
		v.status = presentStatus(val.Present)
		if val.Epsilon > 0 {
			v.epsilon = val.Epsilon
		}
	}
	return nil
}

func presentStatus(present bool) LazyStatus {
	if present {
		return LazyPresent
	}
	return LazyAbsent
}

// Satisfies reports whether v, a current value, meets desired.
func (v Value) Satisfies(desired Value) bool {
	if desired.Ignore {
		return true
	}
	if v.Ignore || v.Kind != desired.Kind {
		return false
	}
	switch desired.Kind {
	case KindBool:
		return compare(boolInt(v.Bool), boolInt(desired.Bool), desired.Op)
	case KindShort, KindUnsigned:
		return compare(v.Int, desired.Int, desired.Op)
	case KindFloat:
		return compare(v.Float, desired.Float, desired.Op)
	case KindOrigin:
		return within(v.Origin, desired.Origin, desired.Epsilon, desired.Op)
	case KindOriginLazy:
		if !desired.Present {
			return !v.Present
		}
		return v.Present && within(v.Origin, desired.Origin, desired.Epsilon, desired.Op)
	case KindDualOriginLazy:
		if !desired.Present {
			return !v.Present
		}
		return v.Present &&
			within(v.Origin, desired.Origin, desired.Epsilon, desired.Op) &&
			within(v.Origin2, desired.Origin2, desired.Epsilon, desired.Op)
	}
	return false
}

func compare[T int64 | float32](current, desired T, op SatisfyOp) bool {
	switch op {
	case EQ:
		return current == desired
	case NE:
		return current != desired
	case LS:
		return current < desired
	case LE:
		return current <= desired
	case GT:
		return current > desired
	case GE:
		return current >= desired
	}
	return false
}

func within(current, desired geom.Vec3, epsilon float32, op SatisfyOp) bool {
	near := current.SquareDistanceTo(desired) <= epsilon*epsilon
	switch op {
	case NE, GT, GE:
		return !near
	}
	return near
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// sameAs is the equality used by WorldState.Equal: ignore flags match, and
// values match when not ignored.
func (v Value) sameAs(o Value) bool {
	if v.Ignore != o.Ignore {
		return false
	}
	if v.Ignore {
		return true
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == o.Bool
	case KindShort, KindUnsigned:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindOrigin:
		return v.Origin == o.Origin
	case KindOriginLazy:
		return v.Present == o.Present && (!v.Present || v.Origin == o.Origin)
	case KindDualOriginLazy:
		return v.Present == o.Present && (!v.Present || (v.Origin == o.Origin && v.Origin2 == o.Origin2))
	}
	return false
}

func (v Value) valueString() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindShort, KindUnsigned:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', 4, 32)
	case KindOrigin:
		return v.Origin.String()
	case KindOriginLazy:
		if !v.Present {
			return "<absent>"
		}
		return v.Origin.String()
	case KindDualOriginLazy:
		if !v.Present {
			return "<absent>"
		}
		return v.Origin.String() + "->" + v.Origin2.String()
	}
	return "?"
}

// String formats the value the way WorldState.String does.
func (v Value) String() string {
	if v.Ignore {
		return "<ignored>"
	}
	return v.valueString()
}
