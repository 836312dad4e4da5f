// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

//go:embed config/agents.yaml
var agentsYAML []byte

//go:embed config/tasks.yaml
var tasksYAML []byte

// AgentSpec describes the persona a stage's reasoner call adopts.
type AgentSpec struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// Persona joins the agent fields into a single system-style preamble.
func (a AgentSpec) Persona() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{a.Role, a.Goal, a.Backstory} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, "\n")
}

// TaskSpec holds the templated prompt for one stage. Both templates are
// rendered against the stage inputs before the reasoner call.
type TaskSpec struct {
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
}

// Library is the full set of agent and task definitions, keyed by stage.
// Task keys follow the "<agent>_task" convention.
type Library struct {
	Agents map[string]AgentSpec
	Tasks  map[string]TaskSpec
}

// stageAgents lists the agent keys every library must define.
var stageAgents = []string{
	"problem_framer",
	"literature_scout",
	"hypothesis_generator",
	"critic",
	"ranker",
	"summa_composer",
}

// Load parses the embedded agent and task definitions.
func Load() (*Library, error) {
	lib := &Library{}
	if err := yaml.Unmarshal(agentsYAML, &lib.Agents); err != nil {
		return nil, fmt.Errorf("parsing agents config: %w", err)
	}
	if err := yaml.Unmarshal(tasksYAML, &lib.Tasks); err != nil {
		return nil, fmt.Errorf("parsing tasks config: %w", err)
	}

	for _, agent := range stageAgents {
		if _, ok := lib.Agents[agent]; !ok {
			return nil, fmt.Errorf("agents config missing %q", agent)
		}
		task, ok := lib.Tasks[agent+"_task"]
		if !ok {
			return nil, fmt.Errorf("tasks config missing %q", agent+"_task")
		}
		if strings.TrimSpace(task.Description) == "" {
			return nil, fmt.Errorf("task %q has an empty description", agent+"_task")
		}
		if strings.TrimSpace(task.ExpectedOutput) == "" {
			return nil, fmt.Errorf("task %q has an empty expected_output", agent+"_task")
		}
	}
	return lib, nil
}
