package worldstate

import (
	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

// BoolVar is a typed view of one boolean variable. Setters return the view so
// calls can be chained, and setting a value clears the ignore flag.
type BoolVar struct{ v *boolVar }

func (ws *WorldState) Bool(id BoolID) BoolVar { return BoolVar{&ws.bools[id]} }

func (b BoolVar) Value() bool                       { return b.v.value }
func (b BoolVar) Ignore() bool                      { return b.v.ignore }
func (b BoolVar) SatisfyOp() SatisfyOp              { return b.v.op }
func (b BoolVar) SetIgnore(ignore bool) BoolVar     { b.v.ignore = ignore; return b }
func (b BoolVar) SetSatisfyOp(op SatisfyOp) BoolVar { b.v.op = op; return b }
func (b BoolVar) Set(value bool) BoolVar {
	b.v.value = value
	b.v.ignore = false
	return b
}

type ShortVar struct{ v *shortVar }

func (ws *WorldState) Short(id ShortID) ShortVar { return ShortVar{&ws.shorts[id]} }

func (s ShortVar) Value() int16                       { return s.v.value }
func (s ShortVar) Ignore() bool                       { return s.v.ignore }
func (s ShortVar) SatisfyOp() SatisfyOp               { return s.v.op }
func (s ShortVar) SetIgnore(ignore bool) ShortVar     { s.v.ignore = ignore; return s }
func (s ShortVar) SetSatisfyOp(op SatisfyOp) ShortVar { s.v.op = op; return s }
func (s ShortVar) Set(value int16) ShortVar {
	s.v.value = value
	s.v.ignore = false
	return s
}

type UnsignedVar struct{ v *unsignedVar }

func (ws *WorldState) Unsigned(id UnsignedID) UnsignedVar { return UnsignedVar{&ws.unsigned[id]} }

func (u UnsignedVar) Value() uint32                       { return u.v.value }
func (u UnsignedVar) Ignore() bool                        { return u.v.ignore }
func (u UnsignedVar) SatisfyOp() SatisfyOp                { return u.v.op }
func (u UnsignedVar) SetIgnore(ignore bool) UnsignedVar   { u.v.ignore = ignore; return u }
func (u UnsignedVar) SetSatisfyOp(op SatisfyOp) UnsignedVar { u.v.op = op; return u }
func (u UnsignedVar) Set(value uint32) UnsignedVar {
	u.v.value = value
	u.v.ignore = false
	return u
}

type FloatVar struct{ v *floatVar }

func (ws *WorldState) Float(id FloatID) FloatVar { return FloatVar{&ws.floats[id]} }

func (f FloatVar) Value() float32                     { return f.v.value }
func (f FloatVar) Ignore() bool                       { return f.v.ignore }
func (f FloatVar) SatisfyOp() SatisfyOp               { return f.v.op }
func (f FloatVar) SetIgnore(ignore bool) FloatVar     { f.v.ignore = ignore; return f }
func (f FloatVar) SetSatisfyOp(op SatisfyOp) FloatVar { f.v.op = op; return f }
func (f FloatVar) Set(value float32) FloatVar {
	f.v.value = value
	f.v.ignore = false
	return f
}

// OriginVar is a typed view of a point variable. It is satisfied when the
// current point lies within the desired variable's epsilon (EQ, LE, LS) or
// outside of it (NE, GT, GE).
type OriginVar struct{ v *originVar }

func (ws *WorldState) Origin(id OriginID) OriginVar { return OriginVar{&ws.origins[id]} }

func (o OriginVar) Value() geom.Vec3                     { return o.v.value }
func (o OriginVar) Ignore() bool                         { return o.v.ignore }
func (o OriginVar) SatisfyOp() SatisfyOp                 { return o.v.op }
func (o OriginVar) Epsilon() float32                     { return o.v.epsilon }
func (o OriginVar) SetIgnore(ignore bool) OriginVar      { o.v.ignore = ignore; return o }
func (o OriginVar) SetSatisfyOp(op SatisfyOp) OriginVar  { o.v.op = op; return o }
func (o OriginVar) SetEpsilon(epsilon float32) OriginVar { o.v.epsilon = epsilon; return o }
func (o OriginVar) Set(value geom.Vec3) OriginVar {
	o.v.value = value
	o.v.ignore = false
	return o
}

// OriginLazyVar is a typed view of a lazily computed point. Reading the value
// runs the installed provider at most once until the variable is reset.
type OriginLazyVar struct {
	ws *WorldState
	id OriginLazyID
}

func (ws *WorldState) OriginLazy(id OriginLazyID) OriginLazyVar { return OriginLazyVar{ws, id} }

func (o OriginLazyVar) raw() *lazyVar { return &o.ws.lazy[o.id] }

// Value resolves the variable and returns the point and whether it exists.
func (o OriginLazyVar) Value() (geom.Vec3, bool) {
	v := o.ws.resolveLazy(o.id)
	return v.value, v.status == LazyPresent
}

func (o OriginLazyVar) IsPresent() bool {
	_, ok := o.Value()
	return ok
}

// IgnoreOrAbsent reports whether the variable plays no part in planning,
// either because it is ignored or because it could not be computed.
func (o OriginLazyVar) IgnoreOrAbsent() bool {
	return o.raw().ignore || !o.IsPresent()
}

func (o OriginLazyVar) Status() LazyStatus   { return o.raw().status }
func (o OriginLazyVar) Ignore() bool         { return o.raw().ignore }
func (o OriginLazyVar) SatisfyOp() SatisfyOp { return o.raw().op }
func (o OriginLazyVar) Epsilon() float32     { return o.raw().epsilon }

func (o OriginLazyVar) SetIgnore(ignore bool) OriginLazyVar {
	o.raw().ignore = ignore
	return o
}

func (o OriginLazyVar) SetSatisfyOp(op SatisfyOp) OriginLazyVar {
	o.raw().op = op
	return o
}

func (o OriginLazyVar) SetEpsilon(epsilon float32) OriginLazyVar {
	o.raw().epsilon = epsilon
	return o
}

// Set stores a resolved point.
func (o OriginLazyVar) Set(value geom.Vec3) OriginLazyVar {
	v := o.raw()
	v.value = value
	v.status = LazyPresent
	v.ignore = false
	return o
}

// SetAbsent records that the point does not exist.
func (o OriginLazyVar) SetAbsent() OriginLazyVar {
	v := o.raw()
	v.value = geom.Vec3{}
	v.status = LazyAbsent
	v.ignore = false
	return o
}

// Reset forgets a resolved value so the provider runs again on next read.
func (o OriginLazyVar) Reset() OriginLazyVar {
	o.raw().status = LazyUnknown
	return o
}

// DualOriginLazyVar is the two point counterpart of OriginLazyVar. Both
// points must be within epsilon for the variable to be satisfied.
type DualOriginLazyVar struct {
	ws *WorldState
	id DualOriginLazyID
}

func (ws *WorldState) DualOriginLazy(id DualOriginLazyID) DualOriginLazyVar {
	return DualOriginLazyVar{ws, id}
}

func (d DualOriginLazyVar) raw() *dualVar { return &d.ws.dual[d.id] }

func (d DualOriginLazyVar) Value() (geom.Vec3, geom.Vec3, bool) {
	v := d.ws.resolveDual(d.id)
	return v.value, v.value2, v.status == LazyPresent
}

func (d DualOriginLazyVar) IsPresent() bool {
	_, _, ok := d.Value()
	return ok
}

func (d DualOriginLazyVar) IgnoreOrAbsent() bool {
	return d.raw().ignore || !d.IsPresent()
}

func (d DualOriginLazyVar) Status() LazyStatus   { return d.raw().status }
func (d DualOriginLazyVar) Ignore() bool         { return d.raw().ignore }
func (d DualOriginLazyVar) SatisfyOp() SatisfyOp { return d.raw().op }
func (d DualOriginLazyVar) Epsilon() float32     { return d.raw().epsilon }

func (d DualOriginLazyVar) SetIgnore(ignore bool) DualOriginLazyVar {
	d.raw().ignore = ignore
	return d
}

func (d DualOriginLazyVar) SetSatisfyOp(op SatisfyOp) DualOriginLazyVar {
	d.raw().op = op
	return d
}

func (d DualOriginLazyVar) SetEpsilon(epsilon float32) DualOriginLazyVar {
	d.raw().epsilon = epsilon
	return d
}

func (d DualOriginLazyVar) Set(value, value2 geom.Vec3) DualOriginLazyVar {
	v := d.raw()
	v.value, v.value2 = value, value2
	v.status = LazyPresent
	v.ignore = false
	return d
}

func (d DualOriginLazyVar) SetAbsent() DualOriginLazyVar {
	v := d.raw()
	v.value, v.value2 = geom.Vec3{}, geom.Vec3{}
	v.status = LazyAbsent
	v.ignore = false
	return d
}

func (d DualOriginLazyVar) Reset() DualOriginLazyVar {
	d.raw().status = LazyUnknown
	return d
}
