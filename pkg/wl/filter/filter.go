package filter

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Filter matches a theme name.
type Filter interface {
	Match(theme string) bool
}

// Parse builds a theme matcher from an expression:
//
//	""              every theme
//	"AI"            substring, case-insensitive
//	"Nuc*"          glob, case-insensitive
//	"/^(AI|GPU)$/"  regular expression
//	"=AI"           exact name, case-insensitive
//	"AI,Nuc*"       any of the comma-separated terms
//	"!Semis"        negation of the rest
func Parse(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Always(true), nil
	}
	if strings.HasPrefix(expr, "!") {
		inner, err := Parse(expr[1:])
		if err != nil {
			return nil, err
		}
		return Not{inner}, nil
	}
	if isRegex(expr) {
		re, err := regexp.Compile(expr[1 : len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("theme regex %s: %w", expr, err)
		}
		return Regex{re: re}, nil
	}
	if strings.Contains(expr, ",") {
		var terms Any
		for _, p := range strings.Split(expr, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			f, err := parseTerm(p, true)
			if err != nil {
				return nil, err
			}
			terms = append(terms, f)
		}
		return terms, nil
	}
	return parseTerm(expr, false)
}

// parseTerm parses a single list element. Bare words in a list are exact
// names so "AI,Data Center" does not pull in "AI Chips".
func parseTerm(term string, inList bool) (Filter, error) {
	switch {
	case isRegex(term):
		return Parse(term)
	case strings.HasPrefix(term, "="):
		return Exact(strings.TrimSpace(term[1:])), nil
	case strings.ContainsAny(term, "*?["):
		if _, err := path.Match(term, ""); err != nil {
			return nil, fmt.Errorf("theme glob %s: %w", term, err)
		}
		return Glob(strings.ToLower(term)), nil
	case inList:
		return Exact(term), nil
	}
	return SubstrCI(strings.ToLower(term)), nil
}

func isRegex(s string) bool {
	return len(s) > 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/")
}

type Always bool

func (a Always) Match(string) bool { return bool(a) }

// Exact compares names ignoring case.
type Exact string

func (e Exact) Match(theme string) bool { return strings.EqualFold(theme, string(e)) }

func (e Exact) String() string { return "exact:" + string(e) }

// Glob holds a lowercased path.Match pattern.
type Glob string

func (g Glob) Match(theme string) bool {
	ok, _ := path.Match(string(g), strings.ToLower(theme))
	return ok
}

func (g Glob) String() string { return "glob:" + string(g) }

type Regex struct{ re *regexp.Regexp }

func (r Regex) Match(theme string) bool { return r.re.MatchString(theme) }

func (r Regex) String() string { return fmt.Sprintf("regex:%s", r.re) }

// SubstrCI holds a lowercased needle.
type SubstrCI string

func (s SubstrCI) Match(theme string) bool {
	return strings.Contains(strings.ToLower(theme), string(s))
}

func (s SubstrCI) String() string { return "substr-ci:" + string(s) }

// Any matches when one of its filters does.
type Any []Filter

func (a Any) Match(theme string) bool {
	for _, f := range a {
		if f.Match(theme) {
			return true
		}
	}
	return false
}

type Not struct{ Filter }

func (n Not) Match(theme string) bool { return !n.Filter.Match(theme) }
