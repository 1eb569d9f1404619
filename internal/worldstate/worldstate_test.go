package worldstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qfusion/qfusion-sub007/internal/geom"
)

func TestNew_AllIgnored(t *testing.T) {
	t.Parallel()
	ws := New()
	for _, k := range Keys() {
		assert.True(t, ws.Value(k).Ignore, k.String())
	}
	// nothing is desired, so anything satisfies it
	assert.True(t, ws.IsSatisfiedBy(New()))
}

func TestSatisfyOps(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		current int16
		desired int16
		op      SatisfyOp
		want    bool
	}{
		{"eq match", 100, 100, EQ, true},
		{"eq mismatch", 99, 100, EQ, false},
		{"ne", 99, 100, NE, true},
		{"ls", 50, 100, LS, true},
		{"ls equal", 100, 100, LS, false},
		{"le equal", 100, 100, LE, true},
		{"gt", 150, 100, GT, true},
		{"gt equal", 100, 100, GT, false},
		{"ge equal", 100, 100, GE, true},
		{"ge below", 99, 100, GE, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			current := New()
			current.Short(Health).Set(tt.current)
			desired := New()
			desired.Short(Health).Set(tt.desired).SetSatisfyOp(tt.op)
			assert.Equal(t, tt.want, desired.IsSatisfiedBy(current))
		})
	}
}

func TestSatisfy_IgnoredCurrentFailsNonIgnoredDesired(t *testing.T) {
	t.Parallel()
	desired := New()
	desired.Bool(HasQuad).Set(true)
	assert.False(t, desired.IsSatisfiedBy(New()))
}

func TestOriginEpsilon(t *testing.T) {
	t.Parallel()
	current := New()
	current.Origin(BotOrigin).Set(geom.V(0, 0, 0))

	desired := New()
	desired.Origin(BotOrigin).Set(geom.V(10, 0, 0)).SetEpsilon(16)
	assert.True(t, desired.IsSatisfiedBy(current))

	desired.Origin(BotOrigin).SetEpsilon(8)
	assert.False(t, desired.IsSatisfiedBy(current))

	desired.Origin(BotOrigin).SetSatisfyOp(NE)
	assert.True(t, desired.IsSatisfiedBy(current))
}

func TestLazyOrigin(t *testing.T) {
	t.Parallel()
	calls := 0
	ws := New()
	ws.SetOriginProvider(CoverSpot, func() (geom.Vec3, bool) {
		calls++
		return geom.V(1, 2, 3), true
	})
	ws.OriginLazy(CoverSpot).SetIgnore(false)

	v, ok := ws.OriginLazy(CoverSpot).Value()
	require.True(t, ok)
	assert.Equal(t, geom.V(1, 2, 3), v)
	_, _ = ws.OriginLazy(CoverSpot).Value()
	_ = ws.Hash()
	assert.Equal(t, 1, calls, "provider should run once")

	ws.OriginLazy(CoverSpot).Reset()
	_ = ws.OriginLazy(CoverSpot).IsPresent()
	assert.Equal(t, 2, calls)
}

func TestLazyOrigin_Absent(t *testing.T) {
	t.Parallel()
	ws := New()
	ws.SetOriginProvider(SniperRangeTacticalSpot, func() (geom.Vec3, bool) { return geom.Vec3{}, false })
	assert.True(t, ws.OriginLazy(SniperRangeTacticalSpot).IgnoreOrAbsent())
	ws.OriginLazy(SniperRangeTacticalSpot).SetIgnore(false)
	assert.True(t, ws.OriginLazy(SniperRangeTacticalSpot).IgnoreOrAbsent())
	assert.Equal(t, LazyAbsent, ws.OriginLazy(SniperRangeTacticalSpot).Status())

	desired := New()
	desired.OriginLazy(SniperRangeTacticalSpot).Set(geom.V(0, 0, 0))
	assert.False(t, desired.IsSatisfiedBy(ws))

	desired.OriginLazy(SniperRangeTacticalSpot).SetAbsent()
	assert.True(t, desired.IsSatisfiedBy(ws))
}

func TestDualOriginLazy(t *testing.T) {
	t.Parallel()
	current := New()
	current.DualOriginLazy(RunAwayTeleportOrigin).Set(geom.V(0, 0, 0), geom.V(100, 0, 0))

	desired := New()
	desired.DualOriginLazy(RunAwayTeleportOrigin).Set(geom.V(4, 0, 0), geom.V(100, 4, 0))
	assert.True(t, desired.IsSatisfiedBy(current))

	desired.DualOriginLazy(RunAwayTeleportOrigin).Set(geom.V(4, 0, 0), geom.V(300, 0, 0))
	assert.False(t, desired.IsSatisfiedBy(current))
}

func TestHash_IgnoredValuesDoNotMatter(t *testing.T) {
	t.Parallel()
	a := New()
	a.Short(Health).Set(100)
	a.Short(Armor).Set(50).SetIgnore(true)

	b := New()
	b.Short(Health).Set(100)
	b.Short(Armor).Set(10).SetIgnore(true)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	// ops are not part of identity
	b.Short(Health).SetSatisfyOp(GE)
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHash_DiffersOnValueAndIgnore(t *testing.T) {
	t.Parallel()
	a := New()
	a.Short(Health).Set(100)

	b := a.Clone()
	b.Short(Health).Set(101)
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Hash(), b.Hash())

	c := a.Clone()
	c.Short(Health).SetIgnore(true)
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()
	a := New()
	a.Bool(HasThreat).Set(true)
	b := a.Clone()
	b.Bool(HasThreat).Set(false)
	assert.True(t, a.Bool(HasThreat).Value())
	assert.False(t, b.Bool(HasThreat).Value())
}

func TestSetIgnoreAll(t *testing.T) {
	t.Parallel()
	ws := New()
	ws.Short(Health).Set(1)
	ws.Float(Offensiveness).Set(0.5)
	ws.SetIgnoreAll(true)
	assert.Equal(t, New().Hash(), ws.Hash())
	assert.True(t, ws.Equal(New()))
}

func TestLookupAndSetValue(t *testing.T) {
	t.Parallel()
	k, ok := Lookup("Armor")
	require.True(t, ok)
	assert.Equal(t, Armor.Key(), k)

	_, ok = Lookup("NoSuchVar")
	assert.False(t, ok)

	ws := New()
	require.NoError(t, ws.SetValue(k, Value{Kind: KindShort, Int: 75, Op: GE}))
	assert.Equal(t, int16(75), ws.Short(Armor).Value())
	assert.Equal(t, GE, ws.Short(Armor).SatisfyOp())
	assert.False(t, ws.Short(Armor).Ignore())

	err := ws.SetValue(k, Value{Kind: KindBool, Bool: true})
	require.ErrorIs(t, err, ErrKindMismatch)
}

type factsAttachment map[string]string

func (f factsAttachment) Hash() uint64 {
	var h uint64
	for k, v := range f {
		h += uint64(len(k))*31 + uint64(len(v))
	}
	return h
}

func (f factsAttachment) Equal(o Attachment) bool {
	of, ok := o.(factsAttachment)
	if !ok || len(of) != len(f) {
		return false
	}
	for k, v := range f {
		if of[k] != v {
			return false
		}
	}
	return true
}

func (f factsAttachment) Clone() Attachment {
	c := make(factsAttachment, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

func TestAttachment(t *testing.T) {
	t.Parallel()
	a := New()
	a.SetAttachment(factsAttachment{"door": "open"})
	b := a.Clone()
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	b.Attachment().(factsAttachment)["door"] = "closed"
	assert.Equal(t, "open", a.Attachment().(factsAttachment)["door"])
	assert.False(t, a.Equal(b))

	assert.False(t, a.Equal(New()))
}

func TestParseSatisfyOp(t *testing.T) {
	t.Parallel()
	op, err := ParseSatisfyOp("LE")
	require.NoError(t, err)
	assert.Equal(t, LE, op)
	_, err = ParseSatisfyOp("<=")
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	t.Parallel()
	ws := New()
	ws.Short(Health).Set(100).SetSatisfyOp(GE)
	ws.Bool(HasQuad).Set(true)
	assert.Equal(t, "WorldState{HasQuad=true, Health>=100}", ws.String())
}
