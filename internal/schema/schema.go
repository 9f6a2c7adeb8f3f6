// Package schema defines the frontmatter contract for campaign content
// entries: canonical field names, the enumerations, and the small parsers
// the field checks are built from.
package schema

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Canonical frontmatter field names, in the order checks run and findings
// are reported.
const (
	FieldTitle           = "title"
	FieldAuthor          = "author"
	FieldVersion         = "version"
	FieldType            = "type"
	FieldCollege         = "college"
	FieldEra             = "era"
	FieldLevelRange      = "levelRange"
	FieldPlayers         = "players"
	FieldCanon           = "canon"
	FieldTags            = "tags"
	FieldContentWarnings = "contentWarnings"
	FieldSlug            = "slug"
	FieldDependencies    = "dependencies"
	FieldPlaytestStatus  = "playtestStatus"
	FieldLastUpdated     = "lastUpdated"
)

// FieldOrder lists every schema field in canonical reporting order.
var FieldOrder = []string{
	FieldTitle, FieldAuthor, FieldVersion, FieldType, FieldCollege,
	FieldEra, FieldLevelRange, FieldPlayers, FieldCanon, FieldTags,
	FieldContentWarnings, FieldSlug, FieldDependencies,
	FieldPlaytestStatus, FieldLastUpdated,
}

// Types enumerates the allowed entry types.
var Types = []string{"scene", "quest", "exam", "npc", "item", "encounter", "table", "downtime", "lore"}

// Colleges enumerates the five colleges. College-agnostic content leaves
// the field empty.
var Colleges = []string{"Lorehold", "Prismari", "Quandrix", "Silverquill", "Witherbloom"}

// PlaytestStatuses enumerates the editorial maturity ladder.
var PlaytestStatuses = []string{"draft", "playtested", "approved"}

var (
	typeRule    = validation.In(anySlice(Types)...).Error("must be one of " + strings.Join(Types, ", "))
	collegeRule = validation.In(anySlice(Colleges)...).Error("must be one of " + strings.Join(Colleges, ", "))
	statusRule  = validation.In(anySlice(PlaytestStatuses)...).Error("must be one of " + strings.Join(PlaytestStatuses, ", "))

	semverRe    = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(-[0-9A-Za-z][0-9A-Za-z.-]*)?(\+[0-9A-Za-z][0-9A-Za-z.-]*)?$`)
	versionRule = validation.Match(semverRe).Error("must be a semantic version like 1.2.0")

	requiredRule = validation.Required.Error("must not be empty")
)

// CheckType validates a type value against the entry type enumeration.
func CheckType(s string) error {
	return validation.Validate(s, requiredRule, typeRule)
}

// CheckCollege validates a non-empty college value against the college
// enumeration. The empty value is legal and must be handled by the caller.
func CheckCollege(s string) error {
	return validation.Validate(s, requiredRule, collegeRule)
}

// CheckPlaytestStatus validates a playtestStatus value.
func CheckPlaytestStatus(s string) error {
	return validation.Validate(s, requiredRule, statusRule)
}

// CheckVersion validates a semantic version string.
func CheckVersion(s string) error {
	return validation.Validate(s, requiredRule, versionRule)
}

func anySlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
