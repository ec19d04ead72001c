package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"
)

// Clause is a predicate over a message, parsed from YAML. It is either a leaf
// (contains or regex) or a composite (any/all of child clauses). A bare scalar
// clause is treated as a contains leaf. Invalid regex patterns are logged once
// at load time and never match.
type Clause struct {
	Contains string
	Regex    string
	Any      []Clause
	All      []Clause

	re       *regexp.Regexp
	reBroken bool
}

// UnmarshalYAML parses the clause union. Supported shapes:
// scalar string, {contains: s}, {regex: s}, {any: [...]}, {all: [...]}.
func (c *Clause) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("decode scalar clause: %w", err)
		}
		c.Contains = s
		return nil
	}

	var raw struct {
		Contains string   `yaml:"contains"`
		Regex    string   `yaml:"regex"`
		Any      []Clause `yaml:"any"`
		All      []Clause `yaml:"all"`
	}
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decode clause: %w", err)
	}

	c.Contains, c.Regex, c.Any, c.All = raw.Contains, raw.Regex, raw.Any, raw.All
	c.compile()
	return nil
}

// compile pre-compiles the regex leaf. Broken patterns are reported once and
// the clause is marked to never match.
func (c *Clause) compile() {
	if c.Regex == "" {
		return
	}
	re, err := regexp.Compile(c.Regex)
	if err != nil {
		lgr.Printf("[WARN] invalid rule regex %q, clause will never match: %v", c.Regex, err)
		c.reBroken = true
		return
	}
	c.re = re
}

// Matches reports whether the clause matches the given title and message.
// The subject is the concatenation "title\nmessage". Pure, no side effects.
func (c *Clause) Matches(title, message string) bool {
	return c.matches(title + "\n" + message)
}

func (c *Clause) matches(subject string) bool {
	switch {
	case len(c.Any) > 0:
		for i := range c.Any {
			if c.Any[i].matches(subject) {
				return true
			}
		}
		return false
	case len(c.All) > 0:
		for i := range c.All {
			if !c.All[i].matches(subject) {
				return false
			}
		}
		return true
	case c.Regex != "":
		if c.reBroken {
			return false
		}
		if c.re == nil { // constructed directly, not via yaml
			c.compile()
			if c.reBroken {
				return false
			}
		}
		return c.re.MatchString(subject)
	case c.Contains != "":
		return strings.Contains(subject, c.Contains) // case-sensitive by contract
	}
	return false
}
