package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"

	"github.com/umputun/notigate/pkg/domain"
)

// Rule is a single filtering rule: a clause and the action taken on first match.
type Rule struct {
	If   Clause `yaml:"if"`
	Then Action `yaml:"then"`
}

// Action describes what happens when a rule matches
type Action struct {
	Suppress   bool   `yaml:"suppress"`
	EscalateTo int    `yaml:"escalate_to"`
	Tag        string `yaml:"tag"`
}

// TagRule prefixes the title with a tag when the match substring is found.
// Unlike rules, tag rules are cumulative - every matching rule applies.
type TagRule struct {
	Match string `yaml:"match" json:"match"`
	Tag   string `yaml:"tag" json:"tag"`
}

// Engine applies an ordered list of rules plus independent priority regex lists
// and tag rules. All patterns are compiled once at construction; invalid ones
// are skipped with a warning and never evaluated again.
type Engine struct {
	rules    []Rule
	raise    []*regexp.Regexp
	lower    []*regexp.Regexp
	tagRules []TagRule
}

// Params holds engine construction parameters
type Params struct {
	Rules      []Rule
	RaiseRegex []string // any match raises priority to at least 9
	LowerRegex []string // any match caps priority at 3, applied after raise
	TagRules   []TagRule
}

// NewEngine creates the rule engine, compiling all escalation patterns
func NewEngine(p Params) *Engine {
	e := &Engine{rules: p.Rules, tagRules: p.TagRules}
	e.raise = compilePatterns(p.RaiseRegex, "raise")
	e.lower = compilePatterns(p.LowerRegex, "lower")
	return e
}

func compilePatterns(patterns []string, kind string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			lgr.Printf("[WARN] invalid %s priority regex %q skipped: %v", kind, p, err)
			continue
		}
		res = append(res, re)
	}
	return res
}

// LoadRules reads the YAML rules file. Rules keep file order; first match wins
// at evaluation time.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from config
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return rules, nil
}

// Apply evaluates the message against the rule list and the priority/tag
// patterns, returning the outcome. Rules are evaluated in declared order and
// stop at the first match. Priority regex lists and tag rules are evaluated
// independently of the rule list and never short-circuit; when both raise and
// lower patterns fire, lower wins because it is applied after raise.
func (e *Engine) Apply(title, message string, priority int) domain.Outcome {
	newTitle, newPriority := title, priority
	ruleMatched := false

	for i := range e.rules {
		if !e.rules[i].If.Matches(title, message) {
			continue
		}
		if e.rules[i].Then.Suppress {
			return domain.Outcome{Kind: domain.OutcomeSuppressed}
		}
		if e.rules[i].Then.EscalateTo > 0 {
			newPriority = e.rules[i].Then.EscalateTo
		}
		if tag := e.rules[i].Then.Tag; tag != "" {
			newTitle = strings.TrimSpace(tag + " " + newTitle)
		}
		ruleMatched = true
		break // first match wins
	}

	subject := title + "\n" + message
	for _, re := range e.raise {
		if re.MatchString(subject) {
			if newPriority < 9 {
				newPriority = 9
			}
			break
		}
	}
	for _, re := range e.lower {
		if re.MatchString(subject) {
			if newPriority > 3 {
				newPriority = 3
			}
			break
		}
	}

	for _, tr := range e.tagRules {
		if tr.Match != "" && strings.Contains(subject, tr.Match) {
			newTitle = strings.TrimSpace(tr.Tag + " " + newTitle)
		}
	}

	if ruleMatched || newTitle != title || newPriority != priority {
		return domain.Outcome{Kind: domain.OutcomeReposted, Title: newTitle, Priority: newPriority}
	}
	return domain.Outcome{Kind: domain.OutcomeUnchanged, Title: title, Priority: priority}
}
