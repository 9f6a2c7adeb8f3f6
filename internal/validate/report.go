// Package validate implements the vault metadata validator: per-entry
// frontmatter checks, cross-entry dependency graph checks, and the
// aggregated report.
package validate

// Kind classifies a violation.
type Kind string

// Violation kinds, as they appear in report output.
const (
	KindMissingField         Kind = "missing_field"
	KindInvalidEnum          Kind = "invalid_enum"
	KindInvalidFormat        Kind = "invalid_format"
	KindInvalidRange         Kind = "invalid_range"
	KindUnresolvedDependency Kind = "unresolved_dependency"
	KindCyclicDependency     Kind = "cyclic_dependency"
)

// Violation is a single schema or graph finding against one entry.
// Advisory findings can be demoted to warnings by the caller; everything
// else fails the run.
type Violation struct {
	Path     string   `json:"path"`
	Field    string   `json:"field,omitempty"`
	Kind     Kind     `json:"kind"`
	Message  string   `json:"message"`
	Cycle    []string `json:"cycle,omitempty"`
	Advisory bool     `json:"advisory,omitempty"`
}

// ParseError names a file whose content could not be read or whose
// frontmatter could not be parsed. Parse errors never abort a run.
type ParseError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Report aggregates one validation run. Runs over an unchanged tree
// produce byte-identical reports: entries are checked in sorted path
// order, violations per entry follow the schema field order, and graph
// findings are sorted.
type Report struct {
	TotalEntries int          `json:"total_entries"`
	Violations   []Violation  `json:"violations"`
	ParseErrors  []ParseError `json:"parse_errors"`
}

// ErrorCount returns the number of non-advisory violations.
func (r *Report) ErrorCount() int {
	n := 0
	for _, v := range r.Violations {
		if !v.Advisory {
			n++
		}
	}
	return n
}

// AdvisoryCount returns the number of advisory violations.
func (r *Report) AdvisoryCount() int {
	return len(r.Violations) - r.ErrorCount()
}

// Clean reports whether the run passed. With demoteAdvisory, advisory
// findings count as warnings instead of failures. Parse errors always fail.
func (r *Report) Clean(demoteAdvisory bool) bool {
	if len(r.ParseErrors) > 0 {
		return false
	}
	if demoteAdvisory {
		return r.ErrorCount() == 0
	}
	return len(r.Violations) == 0
}
