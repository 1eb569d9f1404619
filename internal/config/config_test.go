package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigParsing(t *testing.T) {
	configContent := `# Squads
squad.connectivity-proximity 650
# Planner
planner.max-nodes 1024

[simulate]
ticks 30

[version]
format short`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.HasWarnings() {
		t.Fatalf("unexpected warnings: %v", config.GetWarnings())
	}

	if value, ok := config.GetGlobalOption(KeySquadProximity); !ok || value != "650" {
		t.Errorf("Expected proximity=650, got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetCommandOption("simulate", "ticks"); !ok || value != "30" {
		t.Errorf("Expected simulate.ticks=30, got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetCommandOption("simulate", KeyPlannerMaxNodes); !ok || value != "1024" {
		t.Errorf("Expected fallback to global planner.max-nodes, got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetCommandOption("nonexistent", "option"); ok {
		t.Errorf("Expected nonexistent option to not exist, but got %s", value)
	}
}

func TestEmptyConfig(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}
	if len(config.Global) != 0 || len(config.Commands) != 0 {
		t.Errorf("Expected empty config, got %+v", config)
	}
}

func TestLoadWarnsOnUnknownAndMalformedOptions(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader("squad.colour red\naffinity.modulo many\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	warnings := strings.Join(config.GetWarnings(), "\n")
	if !strings.Contains(warnings, `unknown global option: "squad.colour"`) {
		t.Errorf("expected unknown option warning, got %q", warnings)
	}
	if !strings.Contains(warnings, `expected int, got "many"`) {
		t.Errorf("expected type warning, got %q", warnings)
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing-config"))
	if err != nil {
		t.Fatalf("expected no error loading missing config, got %v", err)
	}
	if len(cfg.Global) != 0 || len(cfg.Commands) != 0 {
		t.Fatalf("expected empty config for missing file, got %+v", cfg)
	}
}

func TestLoadFromPathRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	if err := os.WriteFile(target, []byte("log.level debug\n"), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	link := filepath.Join(dir, "config")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := LoadFromPath(link); err == nil || !strings.Contains(err.Error(), "symlink not allowed") {
		t.Fatalf("expected symlink rejection, got %v", err)
	}
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("log.level debug"), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected load success, got %v", err)
	}
	if got, ok := cfg.GetGlobalOption(KeyLogLevel); !ok || got != "debug" {
		t.Fatalf("expected log.level from env-config, got %q exists=%v", got, ok)
	}
}

func TestTuningDefaults(t *testing.T) {
	tuning := NewConfig().Tuning()
	if tuning.Squad.Proximity != 500 || tuning.Squad.MoveCentiseconds != 400 || tuning.Squad.Timeout != 750*time.Millisecond {
		t.Errorf("unexpected squad tuning: %+v", tuning.Squad)
	}
	if tuning.Objective.AlertTimeout != time.Second || tuning.Objective.AlertStaleAfter != 150*time.Millisecond {
		t.Errorf("unexpected objective tuning: %+v", tuning.Objective)
	}
	if tuning.PlannerMaxNodes != 512 || tuning.HeuristicWeight != 1 || tuning.AffinityModulo != 1 {
		t.Errorf("unexpected planner tuning: %+v", tuning)
	}
}

func TestTuningFromFileAndEnv(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader(`squad.connectivity-timeout 2s
objective.alert-notify-jump 0.5
planner.heuristic-weight 1.5
affinity.modulo 3
planner.max-nodes lots
script.paths /a.js` + string(os.PathListSeparator) + `/b.js
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	t.Setenv("BOTCORE_SCRIPT_PATHS", "/env.js")

	tuning := config.Tuning()
	if tuning.Squad.Timeout != 2*time.Second {
		t.Errorf("expected 2s squad timeout, got %v", tuning.Squad.Timeout)
	}
	if tuning.Objective.AlertNotifyJump != 0.5 {
		t.Errorf("expected notify jump 0.5, got %v", tuning.Objective.AlertNotifyJump)
	}
	if tuning.HeuristicWeight != 1.5 || tuning.AffinityModulo != 3 {
		t.Errorf("unexpected tuning: %+v", tuning)
	}
	if tuning.PlannerMaxNodes != 512 {
		t.Errorf("malformed max-nodes should fall back to the default, got %d", tuning.PlannerMaxNodes)
	}
	if got := config.ScriptPaths(); len(got) != 1 || got[0] != "/env.js" {
		t.Errorf("expected env script paths to win, got %v", got)
	}
	if got := config.GoalPaths(); got != nil {
		t.Errorf("expected no goal paths, got %v", got)
	}
}
