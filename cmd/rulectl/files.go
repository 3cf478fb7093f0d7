package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/practice-rules-api/pkg/condition"
	"github.com/noah-isme/practice-rules-api/pkg/versiongraph"
)

// rulesDocument is the on-disk form of a rule list. JSON files are read by
// the same YAML decoder.
type rulesDocument struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	ID        string           `yaml:"id"`
	Name      string           `yaml:"name"`
	Priority  int              `yaml:"priority"`
	Action    string           `yaml:"action"`
	Enabled   *bool            `yaml:"enabled"`
	Message   string           `yaml:"message"`
	Condition interface{}      `yaml:"condition"`
	Zones     []condition.Zone `yaml:"zones"`
}

type historyDocument struct {
	RuleSets []struct {
		ID        string    `yaml:"id"`
		Parents   []string  `yaml:"parents"`
		CreatedAt time.Time `yaml:"createdAt"`
	} `yaml:"ruleSets"`
	Palette []string `yaml:"palette"`
}

func readYAML(path string, dest interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func loadRules(path string) (*rulesDocument, error) {
	var doc rulesDocument
	if err := readYAML(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// check returns every problem in the document, qualified by rule index.
func (d *rulesDocument) check() []string {
	var problems []string
	for i, entry := range d.Rules {
		prefix := fmt.Sprintf("rules[%d]", i)
		if entry.Name == "" {
			problems = append(problems, prefix+": missing 'name'")
		}
		switch condition.Action(entry.Action) {
		case condition.ActionBlock, condition.ActionAllow:
		default:
			problems = append(problems, fmt.Sprintf("%s: invalid 'action' %q (expected BLOCK or ALLOW)", prefix, entry.Action))
		}
		raw, err := conditionJSON(entry.Condition)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", prefix, err))
			continue
		}
		for _, problem := range condition.Validate(raw) {
			problems = append(problems, prefix+"."+problem)
		}
		for j, zone := range entry.Zones {
			for _, bound := range []struct{ name, value string }{{"timeStart", zone.TimeStart}, {"timeEnd", zone.TimeEnd}} {
				if bound.value == "" {
					continue
				}
				if _, err := condition.ParseTimeOfDay(bound.value); err != nil {
					problems = append(problems, fmt.Sprintf("%s.zones[%d]: invalid '%s' %q (expected HH:MM)", prefix, j, bound.name, bound.value))
				}
			}
		}
	}
	return problems
}

// compile converts a checked document into evaluator rules.
func (d *rulesDocument) compile() ([]condition.Rule, error) {
	rules := make([]condition.Rule, 0, len(d.Rules))
	for i, entry := range d.Rules {
		raw, err := conditionJSON(entry.Condition)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		node, err := condition.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		id := entry.ID
		if id == "" {
			id = fmt.Sprintf("rule-%d", i+1)
		}
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		rules = append(rules, condition.Rule{
			ID:        id,
			Name:      entry.Name,
			Priority:  entry.Priority,
			Action:    condition.Action(entry.Action),
			Enabled:   enabled,
			Message:   entry.Message,
			Condition: condition.Condition{Node: node},
			Zones:     entry.Zones,
		})
	}
	return rules, nil
}

func conditionJSON(value interface{}) ([]byte, error) {
	if value == nil {
		return nil, fmt.Errorf("missing 'condition'")
	}
	return json.Marshal(value)
}

func loadHistory(path string) ([]versiongraph.Node, []string, error) {
	var doc historyDocument
	if err := readYAML(path, &doc); err != nil {
		return nil, nil, err
	}
	nodes := make([]versiongraph.Node, 0, len(doc.RuleSets))
	for i, item := range doc.RuleSets {
		if item.ID == "" {
			return nil, nil, fmt.Errorf("ruleSets[%d]: missing 'id'", i)
		}
		nodes = append(nodes, versiongraph.Node{ID: item.ID, Parents: item.Parents, CreatedAt: item.CreatedAt})
	}
	return nodes, doc.Palette, nil
}
