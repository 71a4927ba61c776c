// Package formula defines the Formula type: a named source snippet
// plus the list of other formula names its body refers to via
// get_output_from, extracted once at construction time.
package formula

import "regexp"

// dependencyPattern matches get_output_from('NAME') occurrences. The
// argument must be a single-quoted literal — this is a textual
// pattern, not a parse of the expression grammar, so a body that
// builds the formula name dynamically (e.g.
// get_output_from(some_expr())) is simply invisible to dependency
// extraction, exactly as spec.md §3 specifies.
var dependencyPattern = regexp.MustCompile(`get_output_from\('([^']+)'\)`)

// Formula is immutable after construction: Name and Body never change,
// and DependsOn is computed once up front.
type Formula struct {
	name      string
	body      string
	dependsOn []string
}

// New builds a Formula, eagerly extracting its dependency list from
// body by scanning for get_output_from('X') occurrences in order,
// duplicates preserved.
func New(name, body string) Formula {
	return Formula{
		name:      name,
		body:      body,
		dependsOn: extractDependencies(body),
	}
}

func (f Formula) Name() string        { return f.name }
func (f Formula) Body() string        { return f.body }
func (f Formula) DependsOn() []string { return f.dependsOn }

func extractDependencies(body string) []string {
	matches := dependencyPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	deps := make([]string, 0, len(matches))
	for _, m := range matches {
		deps = append(deps, m[1])
	}
	return deps
}
