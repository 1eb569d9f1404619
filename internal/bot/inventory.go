package bot

import (
	"math"
)

// Weapon identifies a weapon slot.
type Weapon uint8

const (
	Gunblade Weapon = iota
	Machinegun
	Riotgun
	GrenadeLauncher
	RocketLauncher
	Plasmagun
	Lasergun
	Electrobolt
	numWeapons
)

var weaponNames = [numWeapons]string{
	"gunblade", "machinegun", "riotgun", "grenadelauncher",
	"rocketlauncher", "plasmagun", "lasergun", "electrobolt",
}

func (w Weapon) String() string {
	if w < numWeapons {
		return weaponNames[w]
	}
	return "unknown"
}

// ParseWeapon accepts the names returned by Weapon.String.
func ParseWeapon(s string) (Weapon, bool) {
	for i, n := range weaponNames {
		if n == s {
			return Weapon(i), true
		}
	}
	return 0, false
}

type weaponInfo struct {
	tier    float32
	maxAmmo int
}

var weaponInfos = [numWeapons]weaponInfo{
	Gunblade:        {tier: 0.5, maxAmmo: 0},
	Machinegun:      {tier: 1, maxAmmo: 150},
	Riotgun:         {tier: 1.5, maxAmmo: 20},
	GrenadeLauncher: {tier: 1.5, maxAmmo: 20},
	RocketLauncher:  {tier: 2.5, maxAmmo: 20},
	Plasmagun:       {tier: 2, maxAmmo: 150},
	Lasergun:        {tier: 2, maxAmmo: 150},
	Electrobolt:     {tier: 2.5, maxAmmo: 15},
}

var maxWeaponScore = func() float32 {
	var s float32
	for _, info := range weaponInfos {
		s += info.tier
	}
	return s
}()

// Inventory tracks the weapons a bot holds and their ammo.
type Inventory struct {
	has  [numWeapons]bool
	ammo [numWeapons]int
}

// Give adds a weapon with the given ammo.
func (inv *Inventory) Give(w Weapon, ammo int) {
	if w >= numWeapons {
		return
	}
	inv.has[w] = true
	inv.ammo[w] += ammo
}

func (inv *Inventory) Has(w Weapon) bool { return w < numWeapons && inv.has[w] }

func (inv *Inventory) Ammo(w Weapon) int {
	if w >= numWeapons {
		return 0
	}
	return inv.ammo[w]
}

// WeaponScore rates held weapons and their ammo in [0, 1]. Weapons without
// ammo count for their tier alone when they need none.
func (inv *Inventory) WeaponScore() float32 {
	var s float32
	for w, info := range weaponInfos {
		if !inv.has[w] {
			continue
		}
		if info.maxAmmo == 0 {
			s += info.tier
			continue
		}
		frac := float32(inv.ammo[w]) / float32(info.maxAmmo)
		if frac > 1 {
			frac = 1
		}
		s += info.tier * frac
	}
	return s / maxWeaponScore
}

// Powerups is a bit set of active power-ups.
type Powerups uint8

const (
	Quad Powerups = 1 << iota
	Shell
	Regen
)

func (p Powerups) Has(q Powerups) bool { return p&q != 0 }

const (
	ArmorProtection  float32 = 0.66
	ArmorDegradation float32 = 0.66
)

// DamageToKill returns the damage needed to kill an entity with the given
// health and armor, accounting for the share of damage armor absorbs while
// it lasts.
func DamageToKill(health, armor, armorProtection, armorDegradation float32) float32 {
	if health <= 0 {
		return 0
	}
	if armor <= 0 {
		return health
	}
	if armorProtection >= 1 {
		return float32(math.Inf(1))
	}
	if armorDegradation <= 0 {
		return health / (1 - armorProtection)
	}
	damageToWipeArmor := armor / armorDegradation
	healthDamageToWipeArmor := damageToWipeArmor * (1 - armorProtection)
	if healthDamageToWipeArmor < health {
		return damageToWipeArmor + health - healthDamageToWipeArmor
	}
	return health / (1 - armorProtection)
}
