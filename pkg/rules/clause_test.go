package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestClause_Matches(t *testing.T) {
	tests := []struct {
		name    string
		clause  Clause
		title   string
		message string
		want    bool
	}{
		{"contains match in title", Clause{Contains: "DOWN"}, "server DOWN", "details", true},
		{"contains match in message", Clause{Contains: "DOWN"}, "alert", "host is DOWN now", true},
		{"contains case-sensitive", Clause{Contains: "down"}, "server DOWN", "details", false},
		{"contains no match", Clause{Contains: "UP"}, "server DOWN", "details", false},
		{"contains spans title-message boundary is not matched", Clause{Contains: "alertdetails"}, "alert", "details", false},
		{"regex match", Clause{Regex: "err(or)?s?"}, "disk errors", "", true},
		{"regex unanchored", Clause{Regex: "fail"}, "x", "backup failed at 3am", true},
		{"regex no match", Clause{Regex: "^absent$"}, "title", "message", false},
		{"any one child matches", Clause{Any: []Clause{{Contains: "nope"}, {Contains: "DOWN"}}}, "DOWN", "", true},
		{"any no child matches", Clause{Any: []Clause{{Contains: "a1"}, {Contains: "b2"}}}, "title", "message", false},
		{"any empty list is false", Clause{Any: []Clause{}}, "anything", "at all", false},
		{"all every child matches", Clause{All: []Clause{{Contains: "disk"}, {Contains: "full"}}}, "disk", "full", true},
		{"all one child fails", Clause{All: []Clause{{Contains: "disk"}, {Contains: "empty"}}}, "disk", "full", false},
		{"empty clause is false", Clause{}, "title", "message", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.clause.Matches(tt.title, tt.message))
		})
	}
}

func TestClause_MatchesEmptyAllNotTrue(t *testing.T) {
	// an empty all-list must not behave like a universal match
	c := Clause{All: []Clause{}}
	assert.False(t, c.Matches("any", "thing"))
}

func TestClause_InvalidRegexNeverMatches(t *testing.T) {
	var c Clause
	err := yaml.Unmarshal([]byte(`regex: "("`), &c)
	require.NoError(t, err, "invalid regex must not fail the load")
	assert.False(t, c.Matches("(", "("), "broken pattern never matches, even literally")
}

func TestClause_UnmarshalYAML(t *testing.T) {
	t.Run("scalar becomes contains leaf", func(t *testing.T) {
		var c Clause
		err := yaml.Unmarshal([]byte(`"DOWN"`), &c)
		require.NoError(t, err)
		assert.Equal(t, "DOWN", c.Contains)
		assert.True(t, c.Matches("server DOWN", ""))
	})

	t.Run("nested composite", func(t *testing.T) {
		data := `
any:
  - contains: "CRITICAL"
  - all:
      - regex: "disk"
      - contains: "full"
`
		var c Clause
		err := yaml.Unmarshal([]byte(data), &c)
		require.NoError(t, err)
		assert.True(t, c.Matches("CRITICAL", "anything"))
		assert.True(t, c.Matches("disk space", "volume full"))
		assert.False(t, c.Matches("disk space", "volume ok"))
	})
}
