package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/notigate/pkg/domain"
)

func TestEngine_FirstMatchWins(t *testing.T) {
	e := NewEngine(Params{Rules: []Rule{
		{If: Clause{Contains: "DOWN"}, Then: Action{Suppress: true}},
		{If: Clause{Contains: "DOWN"}, Then: Action{EscalateTo: 9}},
	}})

	res := e.Apply("server DOWN", "host unreachable", 5)
	assert.Equal(t, domain.OutcomeSuppressed, res.Kind, "first rule suppresses, second never reached")
}

func TestEngine_Escalate(t *testing.T) {
	e := NewEngine(Params{Rules: []Rule{
		{If: Clause{Contains: "backup failed"}, Then: Action{EscalateTo: 8, Tag: "[BACKUP]"}},
	}})

	res := e.Apply("nightly", "backup failed on nas", 4)
	require.Equal(t, domain.OutcomeReposted, res.Kind)
	assert.Equal(t, 8, res.Priority)
	assert.Equal(t, "[BACKUP] nightly", res.Title)
}

func TestEngine_EscalateKeepsPriorityWithoutTarget(t *testing.T) {
	e := NewEngine(Params{Rules: []Rule{
		{If: Clause{Contains: "warn"}, Then: Action{Tag: "[W]"}},
	}})

	res := e.Apply("warn: fan speed", "", 6)
	require.Equal(t, domain.OutcomeReposted, res.Kind)
	assert.Equal(t, 6, res.Priority, "no escalate_to keeps the original priority")
	assert.Equal(t, "[W] warn: fan speed", res.Title)
}

func TestEngine_Unmatched(t *testing.T) {
	e := NewEngine(Params{Rules: []Rule{
		{If: Clause{Contains: "nothing here"}, Then: Action{Suppress: true}},
	}})

	res := e.Apply("regular message", "all good", 5)
	assert.Equal(t, domain.OutcomeUnchanged, res.Kind)
	assert.Equal(t, "regular message", res.Title)
	assert.Equal(t, 5, res.Priority)
}

func TestEngine_RaiseLowerCombination(t *testing.T) {
	t.Run("raise only", func(t *testing.T) {
		e := NewEngine(Params{RaiseRegex: []string{"CRITICAL|panic"}})
		res := e.Apply("kernel panic", "", 2)
		require.Equal(t, domain.OutcomeReposted, res.Kind)
		assert.Equal(t, 9, res.Priority)
	})

	t.Run("raise does not lower an already high priority", func(t *testing.T) {
		e := NewEngine(Params{RaiseRegex: []string{"CRITICAL"}})
		res := e.Apply("CRITICAL", "", 10)
		assert.Equal(t, domain.OutcomeUnchanged, res.Kind)
		assert.Equal(t, 10, res.Priority)
	})

	t.Run("lower only", func(t *testing.T) {
		e := NewEngine(Params{LowerRegex: []string{"(?i)debug"}})
		res := e.Apply("DEBUG trace", "", 7)
		require.Equal(t, domain.OutcomeReposted, res.Kind)
		assert.Equal(t, 3, res.Priority)
	})

	t.Run("both fire, lower wins", func(t *testing.T) {
		// lower is applied after raise, observed contract from the source system
		e := NewEngine(Params{RaiseRegex: []string{"alert"}, LowerRegex: []string{"noisy"}})
		res := e.Apply("noisy alert", "", 5)
		require.Equal(t, domain.OutcomeReposted, res.Kind)
		assert.Equal(t, 3, res.Priority)
	})

	t.Run("invalid pattern skipped, valid ones still fire", func(t *testing.T) {
		e := NewEngine(Params{RaiseRegex: []string{"(", "CRITICAL"}})
		res := e.Apply("CRITICAL failure", "", 1)
		require.Equal(t, domain.OutcomeReposted, res.Kind)
		assert.Equal(t, 9, res.Priority)
	})
}

func TestEngine_TagRulesCumulative(t *testing.T) {
	e := NewEngine(Params{TagRules: []TagRule{
		{Match: "disk", Tag: "[DISK]"},
		{Match: "backup", Tag: "[BACKUP]"},
		{Match: "absent", Tag: "[NOPE]"},
	}})

	res := e.Apply("disk backup done", "", 5)
	require.Equal(t, domain.OutcomeReposted, res.Kind)
	// every matching tag rule applies, each prefixing the current title
	assert.Equal(t, "[BACKUP] [DISK] disk backup done", res.Title)
	assert.Equal(t, 5, res.Priority)
}

func TestEngine_RulesThenPatterns(t *testing.T) {
	// a non-suppress rule result still goes through raise/lower adjustment
	e := NewEngine(Params{
		Rules:      []Rule{{If: Clause{Contains: "oom"}, Then: Action{EscalateTo: 7}}},
		LowerRegex: []string{"ignorable"},
	})

	res := e.Apply("oom killer", "ignorable test box", 5)
	require.Equal(t, domain.OutcomeReposted, res.Kind)
	assert.Equal(t, 3, res.Priority, "lower cap applies after rule escalation")
}

func TestLoadRules(t *testing.T) {
	data := `
- if:
    contains: "DOWN"
  then:
    suppress: true
- if:
    any:
      - regex: "fail(ed|ure)"
      - contains: "error"
  then:
    escalate_to: 9
    tag: "[ALERT]"
`
	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.True(t, rules[0].Then.Suppress)
	assert.Equal(t, 9, rules[1].Then.EscalateTo)
	assert.Equal(t, "[ALERT]", rules[1].Then.Tag)

	e := NewEngine(Params{Rules: rules})
	assert.Equal(t, domain.OutcomeSuppressed, e.Apply("host DOWN", "", 5).Kind)

	res := e.Apply("job", "failure in step 3", 5)
	require.Equal(t, domain.OutcomeReposted, res.Kind)
	assert.Equal(t, 9, res.Priority)
	assert.Equal(t, "[ALERT] job", res.Title)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules("/nonexistent/rules.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read rules file")
}
