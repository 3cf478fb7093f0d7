package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/internal/service"
	"github.com/noah-isme/practice-rules-api/pkg/condition"
	"github.com/noah-isme/practice-rules-api/pkg/versiongraph"
)

const fluShotRules = `
rules:
  - id: late-flu
    name: No late flu shots
    priority: 1
    action: BLOCK
    message: closed
    condition:
      type: Property
      entity: Slot
      attr: type
      op: "="
      value: flu-shot
      timeStart: "22:00"
      timeEnd: "02:00"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateAcceptsGoodFile(t *testing.T) {
	out, err := run(t, "validate", writeFile(t, "rules.yaml", fluShotRules))
	require.NoError(t, err)
	assert.Equal(t, "1 rule(s) valid\n", out)
}

func TestValidateListsEveryProblem(t *testing.T) {
	bad := `{"rules":[
		{"name":"broken","action":"DENY","condition":{"type":"AND","children":[{"type":"Property","entity":"Slot","attr":"type","value":"x"}]}},
		{"action":"ALLOW","condition":{"type":"Mystery"},"zones":[{"timeStart":"7am"}]}
	]}`
	out, err := run(t, "validate", writeFile(t, "rules.json", bad))
	require.Error(t, err)
	assert.Equal(t, exitInvalid, exitCode(err))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		`rules[0]: invalid 'action' "DENY" (expected BLOCK or ALLOW)`,
		`rules[0].root.children[0]: missing 'op' field for Property`,
		`rules[1]: missing 'name'`,
		`rules[1].root: unknown condition type "Mystery"`,
		`rules[1].zones[0]: invalid 'timeStart' "7am" (expected HH:MM)`,
	}, lines)
}

func TestEvaluateBlocksLateFluShot(t *testing.T) {
	rules := writeFile(t, "rules.yaml", fluShotRules)
	late := writeFile(t, "slot.yaml", "start: \"2024-03-04T23:00:00Z\"\nend: \"2024-03-04T23:15:00Z\"\ntype: flu-shot\nduration: 15\n")
	morning := writeFile(t, "morning.yaml", "start: \"2024-03-04T10:00:00Z\"\nend: \"2024-03-04T10:15:00Z\"\ntype: flu-shot\nduration: 15\n")

	out, err := run(t, "evaluate", rules, "--slot", late, "-o", "json")
	require.NoError(t, err)
	var decision condition.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &decision))
	assert.Equal(t, condition.ActionBlock, decision.Action)
	assert.Equal(t, "late-flu", decision.RuleID)
	assert.Equal(t, "closed", decision.Message)

	out, err = run(t, "evaluate", rules, "--slot", morning)
	require.NoError(t, err)
	var generic map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &generic))
	assert.Equal(t, "ALLOW", generic["action"])
	assert.Equal(t, condition.DefaultMessage, generic["message"])
}

func TestEvaluateCountsAppointments(t *testing.T) {
	rules := writeFile(t, "rules.yaml", `
rules:
  - name: Double booking
    action: BLOCK
    condition: {type: Count, entity: Appointment, filter: {doctor: dr-1, overlaps: true}, op: ">=", value: 1}
`)
	slot := writeFile(t, "slot.json", `{"start":"2024-03-04T09:15:00Z","end":"2024-03-04T09:30:00Z","type":"check-up","duration":15,"doctor":"dr-1"}`)
	appts := writeFile(t, "appts.json", `[{"_id":"a1","start":"2024-03-04T09:00:00Z","end":"2024-03-04T09:30:00Z","doctor":"dr-1"}]`)

	out, err := run(t, "evaluate", rules, "--slot", slot, "--appointments", appts, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"action": "BLOCK"`)
	assert.Contains(t, out, `"ruleId": "rule-1"`)

	out, err = run(t, "evaluate", rules, "--slot", slot, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"action": "ALLOW"`)
}

func TestEvaluateRejectsInvalidRules(t *testing.T) {
	rules := writeFile(t, "rules.yaml", "rules:\n  - name: x\n    action: BLOCK\n")
	slot := writeFile(t, "slot.yaml", "start: \"2024-03-04T09:15:00Z\"\n")

	_, err := run(t, "evaluate", rules, "--slot", slot)
	require.Error(t, err)
	assert.Equal(t, exitInvalid, exitCode(err))
	assert.Contains(t, err.Error(), "rules[0]: missing 'condition'")

	_, err = run(t, "evaluate", rules)
	assert.Error(t, err)
}

func TestGraphRendersLayout(t *testing.T) {
	history := writeFile(t, "history.yaml", `
ruleSets:
  - {id: v1, createdAt: 2024-01-01T00:00:00Z}
  - {id: v2, parents: [v1], createdAt: 2024-01-02T00:00:00Z}
  - {id: v3, parents: [v1], createdAt: 2024-01-03T00:00:00Z}
palette: ["#111111", "#222222"]
`)
	out, err := run(t, "graph", history, "-o", "json")
	require.NoError(t, err)

	var layout versiongraph.Layout
	require.NoError(t, json.Unmarshal([]byte(out), &layout))
	require.Len(t, layout.Nodes, 3)
	assert.Len(t, layout.Edges, 2)
	assert.Equal(t, 2, layout.Columns)
	for _, node := range layout.Nodes {
		assert.Contains(t, []string{"#111111", "#222222"}, node.Color)
	}

	_, err = run(t, "graph", writeFile(t, "bad.yaml", "ruleSets:\n  - {parents: [v1]}\n"))
	assert.Error(t, err)
}

func TestDurationCommand(t *testing.T) {
	out, err := run(t, "duration", "1h30min")
	require.NoError(t, err)
	assert.Equal(t, "5400000\n", out)

	_, err = run(t, "duration", "90")
	require.Error(t, err)
	assert.Equal(t, exitInvalid, exitCode(err))
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	out, err := run(t, "token", "--secret", "cli-secret", "--role", "staff", "--practice", "p1", "--practice", "p2")
	require.NoError(t, err)

	claims, err := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "cli-secret"}).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, []string{"p1", "p2"}, claims.PracticeIDs)
	assert.Equal(t, "rulectl", claims.UserID)

	_, err = run(t, "token", "--secret", "cli-secret", "--role", "owner")
	assert.Equal(t, exitInvalid, exitCode(err))
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "duration", "15min", "-o", "xml")
	// duration prints plain text and ignores the output format.
	assert.NoError(t, err)

	_, err = run(t, "graph", writeFile(t, "h.yaml", "ruleSets: []\n"), "-o", "xml")
	assert.Equal(t, exitInvalid, exitCode(err))
}
