package aimanager

import (
	"time"

	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/objective"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
	"github.com/Qfusion/qfusion-sub007/internal/scenario"
)

// The spot calls route to the team's objective brain, creating it if the
// team has no bots yet.

func (c *Coordinator) AddDefenceSpot(team int, spot objective.DefenceSpot) error {
	return c.brain(team).AddDefenceSpot(spot)
}

func (c *Coordinator) RemoveDefenceSpot(team, id int) error {
	return c.brain(team).RemoveDefenceSpot(id)
}

func (c *Coordinator) AddOffenceSpot(team int, spot objective.OffenceSpot) error {
	return c.brain(team).AddOffenceSpot(spot)
}

func (c *Coordinator) RemoveOffenceSpot(team, id int) error {
	return c.brain(team).RemoveOffenceSpot(id)
}

func (c *Coordinator) SetDefenceSpotAlert(team, id int, level float32, timeout time.Duration) error {
	return c.brain(team).SetDefenceSpotAlert(id, level, timeout)
}

func (c *Coordinator) EnableDefenceSpotAutoAlert(team, id int) error {
	return c.brain(team).EnableDefenceSpotAutoAlert(id)
}

func (c *Coordinator) DisableDefenceSpotAutoAlert(team, id int) error {
	return c.brain(team).DisableDefenceSpotAutoAlert(id)
}

// ScenarioTarget adapts the coordinator to scenario.Apply.
func (c *Coordinator) ScenarioTarget() scenario.Target { return scenarioTarget{c} }

type scenarioTarget struct{ c *Coordinator }

func (t scenarioTarget) AddBot(b *bot.Bot) (bot.Handle, error) { return t.c.AddBot(b) }

func (t scenarioTarget) AddGoal(def planning.GoalDefinition) error { return t.c.AddGoal(def) }

func (t scenarioTarget) AddDefenceSpot(spec scenario.DefenceSpotSpec) error {
	return t.c.AddDefenceSpot(spec.Team, objective.DefenceSpot{
		ID:                     spec.ID,
		Entity:                 spec.Entity,
		Origin:                 spec.Origin.Vec(),
		Radius:                 spec.Radius,
		MinDefenders:           spec.MinDefenders,
		MaxDefenders:           spec.MaxDefenders,
		UsesAutoAlert:          spec.AutoAlert,
		RegularEnemyAlertScale: spec.RegularInfluence,
		CarrierEnemyAlertScale: spec.CarrierInfluence,
	})
}

func (t scenarioTarget) AddOffenceSpot(spec scenario.OffenceSpotSpec) error {
	return t.c.AddOffenceSpot(spec.Team, objective.OffenceSpot{
		ID:           spec.ID,
		Entity:       spec.Entity,
		Origin:       spec.Origin.Vec(),
		Weight:       spec.Weight,
		MinAttackers: spec.MinAttackers,
		MaxAttackers: spec.MaxAttackers,
	})
}
