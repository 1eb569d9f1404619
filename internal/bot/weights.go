package bot

import (
	"fmt"
	"sort"
)

// Weight config names understood by the native goals.
const (
	WeightKillEnemyBase      = "killEnemy.baseWeight"
	WeightKillEnemyOffensive = "killEnemy.offensivenessCoeff"
	WeightRunAwayBase        = "runAway.baseWeight"
	WeightRunAwayDamageRatio = "runAway.damageRatioThreshold"
	WeightReachNavTargetBase = "reachNavTarget.baseWeight"
	WeightAdvanceCloseRange  = "advanceToEnemy.closeRange"
	WeightRetreatCoverRadius = "retreatToCover.searchRadius"
)

var defaultWeights = map[string]float32{
	WeightKillEnemyBase:      1.0,
	WeightKillEnemyOffensive: 1.5,
	WeightRunAwayBase:        1.2,
	WeightRunAwayDamageRatio: 1.3,
	WeightReachNavTargetBase: 0.5,
	WeightAdvanceCloseRange:  300,
	WeightRetreatCoverRadius: 384,
}

// WeightConfig holds the named tunables of a bot's goals and actions.
// Scripts may override values through a registered weight config factory,
// but cannot add names.
type WeightConfig struct {
	values map[string]float32
}

func NewWeightConfig() *WeightConfig {
	c := &WeightConfig{values: make(map[string]float32, len(defaultWeights))}
	for k, v := range defaultWeights {
		c.values[k] = v
	}
	return c
}

// Get returns the value of name, or zero if it does not exist.
func (c *WeightConfig) Get(name string) float32 { return c.values[name] }

// Set overrides an existing value.
func (c *WeightConfig) Set(name string, value float32) error {
	if _, ok := c.values[name]; !ok {
		return fmt.Errorf("weight config: unknown value %q", name)
	}
	c.values[name] = value
	return nil
}

// Names returns the value names in sorted order.
func (c *WeightConfig) Names() []string {
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Values returns a float64 copy of every value, for expression goals.
func (c *WeightConfig) Values() map[string]float64 {
	out := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		out[k] = float64(v)
	}
	return out
}

// ResetToDefaults discards every override.
func (c *WeightConfig) ResetToDefaults() {
	for k, v := range defaultWeights {
		c.values[k] = v
	}
}
