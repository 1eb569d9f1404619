package config

import (
	"path/filepath"

	"github.com/Qfusion/qfusion-sub007/internal/aimanager"
)

// Tuning projects the configuration onto the coordinator tuning. Each value
// comes from its environment variable, the config file or the schema
// default, in that order. Malformed values, already reported as load
// warnings, fall back to the schema default.
func (c *Config) Tuning() aimanager.Tuning {
	t := aimanager.DefaultTuning()

	t.Squad.Proximity = float32(c.GetFloat(KeySquadProximity))
	t.Squad.MoveCentiseconds = c.GetInt(KeySquadMoveCentiseconds)
	t.Squad.Timeout = c.GetDuration(KeySquadTimeout)

	t.Objective.AlertTimeout = c.GetDuration(KeyAlertTimeout)
	t.Objective.AlertStaleAfter = c.GetDuration(KeyAlertStale)
	t.Objective.AlertNotifyJump = float32(c.GetFloat(KeyAlertNotifyJump))

	t.PlannerMaxNodes = c.GetInt(KeyPlannerMaxNodes)
	t.HeuristicWeight = float32(c.GetFloat(KeyPlannerHeuristic))
	t.AffinityModulo = c.GetInt(KeyAffinityModulo)
	return t
}

// ScriptPaths returns the behaviour scripts to load.
func (c *Config) ScriptPaths() []string { return c.pathList(KeyScriptPaths) }

// GoalPaths returns the expression goal files to load.
func (c *Config) GoalPaths() []string { return c.pathList(KeyGoalPaths) }

func (c *Config) pathList(key string) []string {
	v := c.GetString(key)
	if v == "" {
		return nil
	}
	return filepath.SplitList(v)
}
