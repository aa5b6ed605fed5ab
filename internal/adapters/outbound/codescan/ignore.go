package codescan

import (
	"bufio"
	"os"
	"path"
	"strings"
)

// ignoreRule is a single parsed .gitignore pattern.
type ignoreRule struct {
	pattern  string
	negation bool // pattern started with !
	dirOnly  bool // pattern ended with /
	anchored bool // pattern contains a slash, matches from the root
}

// ruleSet holds the project's ignore rules, applied on top of the built-in
// directory deny-list.
type ruleSet struct {
	rules []ignoreRule
}

// loadIgnoreRules parses the .gitignore at path. A missing or unreadable
// file yields an empty set.
func loadIgnoreRules(path string) *ruleSet {
	rs := &ruleSet{}

	f, err := os.Open(path)
	if err != nil {
		return rs
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule := ignoreRule{}
		if strings.HasPrefix(line, "!") {
			rule.negation = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			line = line[1:]
			rule.anchored = true
		}
		if strings.Contains(line, "/") {
			rule.anchored = true
		}

		rule.pattern = line
		rs.rules = append(rs.rules, rule)
	}

	return rs
}

// Ignored reports whether the root-relative path (slash-separated) is
// excluded. Later rules override earlier ones, matching gitignore semantics.
func (rs *ruleSet) Ignored(rel string, isDir bool) bool {
	ignored := false
	for _, r := range rs.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if !r.matches(rel) {
			continue
		}
		ignored = !r.negation
	}
	return ignored
}

func (r ignoreRule) matches(rel string) bool {
	if r.anchored {
		if ok, _ := path.Match(r.pattern, rel); ok {
			return true
		}
		// An anchored directory pattern also covers everything beneath it.
		return strings.HasPrefix(rel, r.pattern+"/")
	}

	// Unanchored patterns match against any path segment.
	for _, seg := range strings.Split(rel, "/") {
		if ok, _ := path.Match(r.pattern, seg); ok {
			return true
		}
	}
	return false
}
