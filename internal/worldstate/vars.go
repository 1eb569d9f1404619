package worldstate

import (
	"fmt"
)

// Kind is the value type of a world state variable.
type Kind uint8

const (
	KindBool Kind = iota
	KindShort
	KindUnsigned
	KindFloat
	KindOrigin
	KindOriginLazy
	KindDualOriginLazy
)

var kindNames = [...]string{
	KindBool:           "Bool",
	KindShort:          "Short",
	KindUnsigned:       "Unsigned",
	KindFloat:          "Float",
	KindOrigin:         "Origin",
	KindOriginLazy:     "OriginLazy",
	KindDualOriginLazy: "DualOriginLazy",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// SatisfyOp is the relation a current value must have to a desired value.
// The desired value is the right hand operand: LS means current < desired.
type SatisfyOp uint8

const (
	EQ SatisfyOp = iota
	NE
	LS
	LE
	GT
	GE
)

var opNames = [...]string{EQ: "EQ", NE: "NE", LS: "LS", LE: "LE", GT: "GT", GE: "GE"}

func (op SatisfyOp) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("SatisfyOp(%d)", uint8(op))
}

// ParseSatisfyOp accepts the names returned by SatisfyOp.String.
func ParseSatisfyOp(s string) (SatisfyOp, error) {
	for i, name := range opNames {
		if name == s {
			return SatisfyOp(i), nil
		}
	}
	return EQ, fmt.Errorf("unknown satisfy op %q", s)
}

// LazyStatus tracks whether a lazy variable has been resolved this tick.
type LazyStatus uint8

const (
	LazyUnknown LazyStatus = iota
	LazyPresent
	LazyAbsent
)

// BoolID names a boolean fact.
type BoolID uint8

const (
	HasThreat BoolID = iota
	HasQuad
	HasShell
	EnemyHasQuad
	CanHitEnemy
	EnemyCanHit
	HasPositionalAdvantage
	HasJustKilledEnemy
	IsRunningAway
	HasRunAway
	HasJustPickedGoalItem
	HasReactedToThreat
	numBools
)

var boolNames = [numBools]string{
	HasThreat:              "HasThreat",
	HasQuad:                "HasQuad",
	HasShell:               "HasShell",
	EnemyHasQuad:           "EnemyHasQuad",
	CanHitEnemy:            "CanHitEnemy",
	EnemyCanHit:            "EnemyCanHit",
	HasPositionalAdvantage: "HasPositionalAdvantage",
	HasJustKilledEnemy:     "HasJustKilledEnemy",
	IsRunningAway:          "IsRunningAway",
	HasRunAway:             "HasRunAway",
	HasJustPickedGoalItem:  "HasJustPickedGoalItem",
	HasReactedToThreat:     "HasReactedToThreat",
}

// ShortID names a signed 16-bit fact.
type ShortID uint8

const (
	Health ShortID = iota
	Armor
	RawDamageToKill
	PotentialHazardDamage
	numShorts
)

var shortNames = [numShorts]string{
	Health:                "Health",
	Armor:                 "Armor",
	RawDamageToKill:       "RawDamageToKill",
	PotentialHazardDamage: "PotentialHazardDamage",
}

// UnsignedID names an unsigned fact.
type UnsignedID uint8

const (
	NavTargetAreaNum UnsignedID = iota
	ThreatInflictedDamage
	numUnsigned
)

var unsignedNames = [numUnsigned]string{
	NavTargetAreaNum:      "NavTargetAreaNum",
	ThreatInflictedDamage: "ThreatInflictedDamage",
}

// FloatID names a floating point fact.
type FloatID uint8

const (
	Offensiveness FloatID = iota
	KillToBeKilledDamageRatio
	DistanceToEnemy
	numFloats
)

var floatNames = [numFloats]string{
	Offensiveness:             "Offensiveness",
	KillToBeKilledDamageRatio: "KillToBeKilledDamageRatio",
	DistanceToEnemy:           "DistanceToEnemy",
}

// OriginID names a point fact.
type OriginID uint8

const (
	BotOrigin OriginID = iota
	EnemyOrigin
	NavTargetOrigin
	PendingOrigin
	numOrigins
)

var originNames = [numOrigins]string{
	BotOrigin:       "BotOrigin",
	EnemyOrigin:     "EnemyOrigin",
	NavTargetOrigin: "NavTargetOrigin",
	PendingOrigin:   "PendingOrigin",
}

// OriginLazyID names a point fact that is computed on first use, and may turn
// out to be unobtainable this tick.
type OriginLazyID uint8

const (
	CoverSpot OriginLazyID = iota
	SniperRangeTacticalSpot
	CloseRangeTacticalSpot
	ThreatPossibleOrigin
	numOriginLazy
)

var originLazyNames = [numOriginLazy]string{
	CoverSpot:               "CoverSpot",
	SniperRangeTacticalSpot: "SniperRangeTacticalSpot",
	CloseRangeTacticalSpot:  "CloseRangeTacticalSpot",
	ThreatPossibleOrigin:    "ThreatPossibleOrigin",
}

// DualOriginLazyID names a lazily computed pair of points, e.g. a teleporter
// entrance and its exit.
type DualOriginLazyID uint8

const (
	RunAwayTeleportOrigin DualOriginLazyID = iota
	RunAwayJumppadOrigin
	RunAwayElevatorOrigin
	numDualOriginLazy
)

var dualOriginLazyNames = [numDualOriginLazy]string{
	RunAwayTeleportOrigin: "RunAwayTeleportOrigin",
	RunAwayJumppadOrigin:  "RunAwayJumppadOrigin",
	RunAwayElevatorOrigin: "RunAwayElevatorOrigin",
}

func (id BoolID) String() string           { return boolNames[id] }
func (id ShortID) String() string          { return shortNames[id] }
func (id UnsignedID) String() string       { return unsignedNames[id] }
func (id FloatID) String() string          { return floatNames[id] }
func (id OriginID) String() string         { return originNames[id] }
func (id OriginLazyID) String() string     { return originLazyNames[id] }
func (id DualOriginLazyID) String() string { return dualOriginLazyNames[id] }

// Key addresses any variable independently of its kind. It is used by the
// script bridge and the reactive planner, which work with variable names.
type Key struct {
	Kind  Kind
	Index uint8
}

func (k Key) String() string {
	switch k.Kind {
	case KindBool:
		return boolNames[k.Index]
	case KindShort:
		return shortNames[k.Index]
	case KindUnsigned:
		return unsignedNames[k.Index]
	case KindFloat:
		return floatNames[k.Index]
	case KindOrigin:
		return originNames[k.Index]
	case KindOriginLazy:
		return originLazyNames[k.Index]
	case KindDualOriginLazy:
		return dualOriginLazyNames[k.Index]
	}
	return fmt.Sprintf("%s#%d", k.Kind, k.Index)
}

func (id BoolID) Key() Key           { return Key{KindBool, uint8(id)} }
func (id ShortID) Key() Key          { return Key{KindShort, uint8(id)} }
func (id UnsignedID) Key() Key       { return Key{KindUnsigned, uint8(id)} }
func (id FloatID) Key() Key          { return Key{KindFloat, uint8(id)} }
func (id OriginID) Key() Key         { return Key{KindOrigin, uint8(id)} }
func (id OriginLazyID) Key() Key     { return Key{KindOriginLazy, uint8(id)} }
func (id DualOriginLazyID) Key() Key { return Key{KindDualOriginLazy, uint8(id)} }

var (
	allKeys   []Key
	keyByName map[string]Key
)

func init() {
	add := func(kind Kind, n int) {
		for i := 0; i < n; i++ {
			allKeys = append(allKeys, Key{kind, uint8(i)})
		}
	}
	add(KindBool, int(numBools))
	add(KindShort, int(numShorts))
	add(KindUnsigned, int(numUnsigned))
	add(KindFloat, int(numFloats))
	add(KindOrigin, int(numOrigins))
	add(KindOriginLazy, int(numOriginLazy))
	add(KindDualOriginLazy, int(numDualOriginLazy))

	keyByName = make(map[string]Key, len(allKeys))
	for _, k := range allKeys {
		keyByName[k.String()] = k
	}
}

// Keys returns every variable key in a stable order.
func Keys() []Key {
	out := make([]Key, len(allKeys))
	copy(out, allKeys)
	return out
}

// Lookup resolves a variable name such as "Health" or "CoverSpot".
func Lookup(name string) (Key, bool) {
	k, ok := keyByName[name]
	return k, ok
}
