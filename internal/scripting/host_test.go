package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Qfusion/qfusion-sub007/internal/bot"
	"github.com/Qfusion/qfusion-sub007/internal/geom"
	"github.com/Qfusion/qfusion-sub007/internal/invariant"
	"github.com/Qfusion/qfusion-sub007/internal/objective"
	"github.com/Qfusion/qfusion-sub007/internal/planning"
	"github.com/Qfusion/qfusion-sub007/internal/worldstate"
)

const holdScript = `
const ai = require('qf:ai');

class HoldRecord extends ai.ActionRecord {
	constructor() {
		super();
		this.ticks = 0;
	}
	activate() { this.active = true; }
	checkStatus(ws) {
		this.ticks++;
		return this.ticks > 1 ? ai.COMPLETED : ai.VALID;
	}
}
ai.registerType(HoldRecord);

class HoldGoal extends ai.Goal {
	updateWeight(ws) { return ws.get("Health") < 50 ? 2 : 0.5; }
	getDesiredWorldState(ws) { ws.setFact("holding", true); }
}
ai.registerGoal(HoldGoal);

class HoldAction extends ai.Action {
	tryApply(ws) {
		if (ws.fact("holding") === 1) {
			return null;
		}
		ws.setFact("holding", true);
		return this.newNodeForRecord(new HoldRecord(), 1, ws);
	}
}
ai.registerAction(HoldAction);

class Tuned extends ai.WeightConfig {
	values() { return { "killEnemy.baseWeight": 3, "no.such.weight": 1 }; }
}
ai.registerWeightConfig(Tuned);
`

func newTestHost(t *testing.T, opts Options) *Host {
	t.Helper()
	h, err := NewHost(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func global(t *testing.T, h *Host, name string) any {
	t.Helper()
	var out any
	require.NoError(t, h.RunOnLoopSync(func(vm *goja.Runtime) error {
		out = vm.Get(name).Export()
		return nil
	}))
	return out
}

func TestHost_ScriptGoalAndAction(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	require.NoError(t, h.LoadScript("hold.js", holdScript))

	b := bot.New("alpha", 1, nil)
	goals, err := h.NewGoals(b)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "HoldGoal", goals[0].Name())

	actions, err := h.NewActions(b)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "HoldAction", actions[0].Name())

	current := worldstate.New()
	current.Short(worldstate.Health).Set(30)
	goals[0].UpdateWeight(current)
	assert.Equal(t, float32(2), goals[0].Weight())
	current.Short(worldstate.Health).Set(90)
	goals[0].UpdateWeight(current)
	assert.Equal(t, float32(0.5), goals[0].Weight())
	assert.Nil(t, current.Attachment(), "scripts see a copy of the current state")

	desired := worldstate.New()
	goals[0].GetDesiredWorldState(desired)
	assert.Equal(t, Facts{"holding": 1}, desired.Attachment())

	node := actions[0].TryApply(current)
	require.NotNil(t, node)
	assert.Equal(t, float32(1), node.Cost())
	assert.Equal(t, "HoldRecord", node.Record().Name())
	assert.Equal(t, node.WorldState().Hash(), node.WorldStateHash())
	assert.True(t, desired.IsSatisfiedBy(node.WorldState()))
	assert.Nil(t, actions[0].TryApply(node.WorldState()))

	record := node.Record()
	record.Activate()
	assert.Equal(t, planning.Valid, record.CheckStatus(current))
	assert.Equal(t, planning.Completed, record.CheckStatus(current))
}

func TestHost_PlansWithScriptBehaviour(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	require.NoError(t, h.LoadScript("hold.js", holdScript))

	b := bot.New("alpha", 1, nil)
	goals, err := h.NewGoals(b)
	require.NoError(t, err)
	actions, err := h.NewActions(b)
	require.NoError(t, err)

	plan, err := planning.NewPlanner(0, 0, nil).FindPlan(goals[0], worldstate.New(), actions)
	require.NoError(t, err)
	require.Len(t, plan.Records(), 1)
	assert.Equal(t, "HoldRecord", plan.Records()[0].Name())
}

func TestHost_InstallBot(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	require.NoError(t, h.LoadScript("hold.js", holdScript))

	b := bot.New("alpha", 1, nil)
	nativeGoals, nativeActions := len(b.Goals()), len(b.Actions())
	require.NoError(t, h.InstallBot(b))
	assert.Len(t, b.Goals(), nativeGoals+1)
	assert.Len(t, b.Actions(), nativeActions+1)
	assert.Equal(t, float32(3), b.WeightConfig().Get(bot.WeightKillEnemyBase))
}

func TestHost_WrongTypeIsFatal(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name     string
		record   string
		actual   string
		expected string
	}{
		{name: "goal instance", record: "new Other()", actual: "Other", expected: "ActionRecord"},
		{name: "unregistered class", record: "new Loose()", actual: "Loose", expected: "ActionRecord"},
		{name: "number", record: "42", actual: "number", expected: "ActionRecord"},
		{name: "undefined", record: "undefined", actual: "undefined", expected: "ActionRecord"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newTestHost(t, Options{})
			require.NoError(t, h.LoadScript("bogus.js", `
				const ai = require('qf:ai');
				class Other extends ai.Goal {}
				ai.registerType(Other);
				class Loose extends ai.ActionRecord {}
				class Bogus extends ai.Action {
					tryApply(ws) {
						return this.newNodeForRecord(`+tc.record+`, 1, ws);
					}
				}
				ai.registerAction(Bogus);
			`))
			actions, err := h.NewActions(bot.New("alpha", 1, nil))
			require.NoError(t, err)
			require.Len(t, actions, 1)

			err = func() (err error) {
				defer invariant.Recover(&err)
				actions[0].TryApply(worldstate.New())
				return nil
			}()
			var v *invariant.Violation
			require.ErrorAs(t, err, &v)
			assert.Equal(t, "newNodeForRecord", v.Site)
			assert.Equal(t, tc.actual, v.Actual)
			assert.Equal(t, tc.expected, v.Expected)
			assert.Contains(t, v.Error(), tc.actual)
			assert.Contains(t, v.Error(), tc.expected)

			assert.Same(t, v, h.Poisoned())
			err = h.LoadScript("later.js", `1`)
			assert.True(t, errors.Is(err, v))
		})
	}
}

func TestHost_TryApplyMustReturnNode(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	require.NoError(t, h.LoadScript("node.js", `
		const ai = require('qf:ai');
		class Sloppy extends ai.Action {
			tryApply(ws) { return { cost: 1 }; }
		}
		ai.registerAction(Sloppy);
	`))
	actions, err := h.NewActions(bot.New("alpha", 1, nil))
	require.NoError(t, err)

	err = func() (err error) {
		defer invariant.Recover(&err)
		actions[0].TryApply(worldstate.New())
		return nil
	}()
	var v *invariant.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "tryApply", v.Site)
	assert.Equal(t, "PlannerNode", v.Expected)
}

func TestLoadScript_RejectsFactoryOfWrongBase(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	err := h.LoadScript("wrong.js", `
		const ai = require('qf:ai');
		class NotAGoal extends ai.Action {}
		ai.registerGoal(NotAGoal);
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotAGoal does not extend Goal")
	assert.NoError(t, h.Poisoned())

	goals, err := h.NewGoals(bot.New("alpha", 1, nil))
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestLoadScript_TooManyTypes(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	err := h.LoadScript("many.js", `
		const ai = require('qf:ai');
		for (let i = 0; i < 24; i++) {
			ai.registerType(class extends ai.Goal {});
		}
	`)
	assert.ErrorIs(t, err, ErrTooManyTypes)
}

func TestLoadScript_RescanKeepsEarlierTypes(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	require.NoError(t, h.LoadScript("hold.js", holdScript))
	require.NoError(t, h.LoadScript("more.js", `{
		const ai = require('qf:ai');
		class Idle extends ai.Goal {
			updateWeight() { return 0.1; }
		}
		ai.registerGoal(Idle);
	}`))
	goals, err := h.NewGoals(bot.New("alpha", 1, nil))
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "HoldGoal", goals[0].Name())
	assert.Equal(t, "Idle", goals[1].Name())
}

func TestLoadScript_SyntaxError(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	err := h.LoadScript("broken.js", `class {`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile broken.js")
	assert.NoError(t, h.Poisoned())
}

type spotCall struct {
	name string
	team int
	id   int
}

type fakeSpots struct {
	calls   []spotCall
	defence []objective.DefenceSpot
	alert   time.Duration
}

func (f *fakeSpots) record(name string, team, id int) error {
	f.calls = append(f.calls, spotCall{name, team, id})
	if id <= 0 {
		return objective.ErrInvalidID
	}
	return nil
}

func (f *fakeSpots) AddDefenceSpot(team int, spot objective.DefenceSpot) error {
	f.defence = append(f.defence, spot)
	return f.record("addDefenceSpot", team, spot.ID)
}

func (f *fakeSpots) RemoveDefenceSpot(team, id int) error {
	return f.record("removeDefenceSpot", team, id)
}

func (f *fakeSpots) AddOffenceSpot(team int, spot objective.OffenceSpot) error {
	return f.record("addOffenceSpot", team, spot.ID)
}

func (f *fakeSpots) RemoveOffenceSpot(team, id int) error {
	return f.record("removeOffenceSpot", team, id)
}

func (f *fakeSpots) SetDefenceSpotAlert(team, id int, _ float32, timeout time.Duration) error {
	f.alert = timeout
	return f.record("setDefenceSpotAlert", team, id)
}

func (f *fakeSpots) EnableDefenceSpotAutoAlert(team, id int) error {
	return f.record("enableDefenceSpotAutoAlert", team, id)
}

func (f *fakeSpots) DisableDefenceSpotAutoAlert(team, id int) error {
	return f.record("disableDefenceSpotAutoAlert", team, id)
}

func TestSpotCalls(t *testing.T) {
	t.Parallel()
	spots := &fakeSpots{}
	h := newTestHost(t, Options{Spots: spots})
	require.NoError(t, h.LoadScript("spots.js", `
		const ai = require('qf:ai');
		globalThis.results = [
			ai.addDefenceSpot(1, {id: 1, entity: 7, origin: [10, 20, 0], radius: 300, autoAlert: true, maxDefenders: 4}),
			ai.addDefenceSpot(1, {id: 0, entity: 7, origin: [0, 0, 0]}),
			ai.addDefenceSpot(1, {id: 2, origin: "nowhere"}),
			ai.addOffenceSpot(2, {id: 1, entity: 9, origin: [0, 0], weight: 0.5}),
			ai.setDefenceSpotAlert(1, 1, 0.8, 1500),
			ai.enableDefenceSpotAutoAlert(1, -3),
			ai.disableDefenceSpotAutoAlert(1, 1),
			ai.removeOffenceSpot(2, 1),
			ai.removeDefenceSpot(1, 1),
		];
	`))
	assert.Equal(t, []any{true, false, false, true, true, false, true, true, true}, global(t, h, "results"))
	require.Len(t, spots.defence, 2)
	assert.Equal(t, objective.DefenceSpot{
		ID:            1,
		Entity:        7,
		Origin:        geom.V(10, 20, 0),
		Radius:        300,
		MaxDefenders:  4,
		UsesAutoAlert: true,
	}, spots.defence[0])
	assert.Equal(t, 1500*time.Millisecond, spots.alert)
	assert.Equal(t, spotCall{"addOffenceSpot", 2, 1}, spots.calls[2])
}

func TestSpotCalls_NoController(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	require.NoError(t, h.LoadScript("spots.js", `
		globalThis.ok = require('qf:ai').removeDefenceSpot(1, 1);
	`))
	assert.Equal(t, false, global(t, h, "ok"))
}

func TestBotSummaries(t *testing.T) {
	t.Parallel()
	var pool bot.Pool
	alpha := bot.New("alpha", 1, nil)
	alpha.Origin = geom.V(1, 2, 3)
	alpha.Health = 75
	alpha.SetNavTarget(&bot.NavEntity{Entity: 12, Name: "red armor", Origin: geom.V(100, 0, 0), Cost: 2})
	_, err := pool.Add(alpha)
	require.NoError(t, err)
	_, err = pool.Add(bot.New("bravo", 2, nil))
	require.NoError(t, err)

	h := newTestHost(t, Options{Bots: &pool})
	require.NoError(t, h.LoadScript("summary.js", `
		const ai = require('qf:ai');
		const a = ai.bot("alpha");
		globalThis.out = {
			count: ai.bots().length,
			name: a.name,
			health: a.health,
			origin: a.origin.join(","),
			enemies: a.selectedEnemies.valid,
			nav: a.selectedNavEntity.name,
			navEntity: a.selectedNavEntity.entity,
			bravoNav: ai.bot("bravo").selectedNavEntity,
			missing: ai.bot("charlie"),
		};
	`))
	out, ok := global(t, h, "out").(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, out["count"])
	assert.Equal(t, "alpha", out["name"])
	assert.EqualValues(t, 75, out["health"])
	assert.Equal(t, "1,2,3", out["origin"])
	assert.Equal(t, false, out["enemies"])
	assert.Equal(t, "red armor", out["nav"])
	assert.EqualValues(t, 12, out["navEntity"])
	assert.Nil(t, out["bravoNav"])
	assert.Nil(t, out["missing"])
}

func TestScriptWorldState(t *testing.T) {
	t.Parallel()
	h := newTestHost(t, Options{})
	require.NoError(t, h.LoadScript("ws.js", `
		const ai = require('qf:ai');
		const ws = ai.newWorldState();
		const before = ws.get("Health");
		ws.set("Health", 80).setSatisfyOp("Health", "GE");
		ws.set("BotOrigin", [1, 2, 3]);
		ws.set("CoverSpot", null);
		const want = ai.newWorldState().set("Health", 80).setSatisfyOp("Health", "GE");
		globalThis.out = {
			before: before,
			health: ws.get("Health"),
			origin: ws.get("BotOrigin").join(","),
			cover: ws.get("CoverSpot"),
			ignored: ws.isIgnored("Armor"),
			healthy: want.isSatisfiedBy(ai.newWorldState().set("Health", 100)),
			hurt: want.isSatisfiedBy(ai.newWorldState().set("Health", 10)),
			sameHash: ws.clone().hash() === ws.hash(),
		};
		try {
			ws.get("NoSuchVar");
			globalThis.unknown = "accepted";
		} catch (e) {
			globalThis.unknown = e instanceof TypeError;
		}
	`))
	out, ok := global(t, h, "out").(map[string]any)
	require.True(t, ok)
	assert.Nil(t, out["before"])
	assert.EqualValues(t, 80, out["health"])
	assert.Equal(t, "1,2,3", out["origin"])
	assert.Nil(t, out["cover"])
	assert.Equal(t, true, out["ignored"])
	assert.Equal(t, true, out["healthy"])
	assert.Equal(t, false, out["hurt"])
	assert.Equal(t, true, out["sameHash"])
	assert.Equal(t, true, global(t, h, "unknown"))
}

func TestHost_CloseStopsCalls(t *testing.T) {
	t.Parallel()
	h, err := NewHost(context.Background(), Options{})
	require.NoError(t, err)
	require.True(t, h.IsRunning())
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.False(t, h.IsRunning())
	assert.ErrorIs(t, h.LoadScript("late.js", `1`), ErrNotRunning)
	select {
	case <-h.Done():
	default:
		t.Fatal("done channel still open")
	}
}

func TestHost_ContextCancelCloses(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	h, err := NewHost(ctx, Options{})
	require.NoError(t, err)
	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("host did not stop")
	}
}

func TestCurrentGoroutineID(t *testing.T) {
	t.Parallel()
	id := currentGoroutineID()
	assert.Positive(t, id)
	other := make(chan int64)
	go func() { other <- currentGoroutineID() }()
	assert.NotEqual(t, id, <-other)
}
