package validate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lorehold/biblioplex/internal/schema"
)

// EntryChecker validates a single entry's frontmatter record. Now anchors
// the lastUpdated future check; Sensitive holds the lowercased tags that
// make contentWarnings expected.
type EntryChecker struct {
	Now       time.Time
	Sensitive map[string]struct{}
}

// Check returns the violations for one record in schema field order, at
// most one per field. A nil record (file without frontmatter) fails every
// required-field check.
func (c *EntryChecker) Check(path string, fm map[string]interface{}) []Violation {
	var out []Violation
	add := func(field string, kind Kind, msg string) {
		out = append(out, Violation{Path: path, Field: field, Kind: kind, Message: msg})
	}

	c.checkRequiredString(&out, path, fm, schema.FieldTitle)
	c.checkRequiredString(&out, path, fm, schema.FieldAuthor)

	if raw, ok := fm[schema.FieldVersion]; !ok {
		add(schema.FieldVersion, KindMissingField, "required field is missing")
	} else if s, ok := raw.(string); !ok {
		add(schema.FieldVersion, KindInvalidFormat, "must be a string")
	} else if err := schema.CheckVersion(s); err != nil {
		add(schema.FieldVersion, KindInvalidFormat, fmt.Sprintf("%q %v", s, err))
	}

	if raw, ok := fm[schema.FieldType]; !ok {
		add(schema.FieldType, KindMissingField, "required field is missing")
	} else if s, ok := raw.(string); !ok {
		add(schema.FieldType, KindInvalidFormat, "must be a string")
	} else if err := schema.CheckType(s); err != nil {
		add(schema.FieldType, KindInvalidEnum, fmt.Sprintf("%q %v", s, err))
	}

	if raw, ok := fm[schema.FieldCollege]; ok {
		if s, ok := raw.(string); !ok {
			add(schema.FieldCollege, KindInvalidFormat, "must be a string")
		} else if s != "" {
			if err := schema.CheckCollege(s); err != nil {
				add(schema.FieldCollege, KindInvalidEnum, fmt.Sprintf("%q %v", s, err))
			}
		}
	}

	if raw, ok := fm[schema.FieldEra]; ok {
		if _, ok := raw.(string); !ok {
			add(schema.FieldEra, KindInvalidFormat, "must be a string")
		}
	}

	if v := rangeViolation(path, fm, schema.FieldLevelRange); v != nil {
		out = append(out, *v)
	}
	if v := rangeViolation(path, fm, schema.FieldPlayers); v != nil {
		out = append(out, *v)
	}

	if raw, ok := fm[schema.FieldCanon]; !ok {
		add(schema.FieldCanon, KindMissingField, "required field is missing")
	} else if _, ok := raw.(bool); !ok {
		add(schema.FieldCanon, KindInvalidFormat, "must be a boolean")
	}

	if raw, ok := fm[schema.FieldTags]; ok && !isStringList(raw) {
		add(schema.FieldTags, KindInvalidFormat, "must be a list of strings")
	}

	if raw, present := fm[schema.FieldContentWarnings]; present {
		if !isStringList(raw) {
			add(schema.FieldContentWarnings, KindInvalidFormat, "must be a list of strings")
		}
	} else if matched := c.sensitiveTags(fm); len(matched) > 0 {
		out = append(out, Violation{
			Path:     path,
			Field:    schema.FieldContentWarnings,
			Kind:     KindMissingField,
			Advisory: true,
			Message:  fmt.Sprintf("tags %s suggest sensitive content but contentWarnings is missing", strings.Join(matched, ", ")),
		})
	}

	if raw, ok := fm[schema.FieldSlug]; ok {
		if s, ok := raw.(string); !ok {
			add(schema.FieldSlug, KindInvalidFormat, "must be a string")
		} else if strings.TrimSpace(s) == "" {
			add(schema.FieldSlug, KindInvalidFormat, "must not be empty")
		}
	}

	if raw, ok := fm[schema.FieldDependencies]; ok && !isStringList(raw) {
		add(schema.FieldDependencies, KindInvalidFormat, "must be a list of entry identifiers")
	}

	if raw, ok := fm[schema.FieldPlaytestStatus]; !ok {
		add(schema.FieldPlaytestStatus, KindMissingField, "required field is missing")
	} else if s, ok := raw.(string); !ok {
		add(schema.FieldPlaytestStatus, KindInvalidFormat, "must be a string")
	} else if err := schema.CheckPlaytestStatus(s); err != nil {
		add(schema.FieldPlaytestStatus, KindInvalidEnum, fmt.Sprintf("%q %v", s, err))
	}

	if raw, ok := fm[schema.FieldLastUpdated]; !ok {
		add(schema.FieldLastUpdated, KindMissingField, "required field is missing")
	} else if d, err := schema.Date(raw); err != nil {
		add(schema.FieldLastUpdated, KindInvalidFormat, err.Error())
	} else if day := d.UTC().Format("2006-01-02"); day > c.Now.UTC().Format("2006-01-02") {
		add(schema.FieldLastUpdated, KindInvalidRange, fmt.Sprintf("date %s is in the future", day))
	}

	return out
}

func (c *EntryChecker) checkRequiredString(out *[]Violation, path string, fm map[string]interface{}, field string) {
	raw, ok := fm[field]
	if !ok {
		*out = append(*out, Violation{Path: path, Field: field, Kind: KindMissingField, Message: "required field is missing"})
		return
	}
	s, ok := raw.(string)
	if !ok {
		*out = append(*out, Violation{Path: path, Field: field, Kind: KindInvalidFormat, Message: "must be a string"})
		return
	}
	if strings.TrimSpace(s) == "" {
		*out = append(*out, Violation{Path: path, Field: field, Kind: KindInvalidFormat, Message: "must not be empty"})
	}
}

// sensitiveTags returns the sorted frontmatter tags that match the
// sensitive set.
func (c *EntryChecker) sensitiveTags(fm map[string]interface{}) []string {
	if len(c.Sensitive) == 0 {
		return nil
	}
	var matched []string
	for _, tag := range schema.Strings(fm, schema.FieldTags) {
		if _, hit := c.Sensitive[strings.ToLower(tag)]; hit {
			matched = append(matched, tag)
		}
	}
	sort.Strings(matched)
	return matched
}

// rangeViolation checks one of the two range-shaped fields. Absent fields
// are fine; bad shapes are format violations and bad bounds are range
// violations.
func rangeViolation(path string, fm map[string]interface{}, field string) *Violation {
	raw, ok := fm[field]
	if !ok {
		return nil
	}
	var expr string
	switch val := raw.(type) {
	case string:
		expr = val
	default:
		n, ok := schema.Int(raw)
		if !ok {
			return &Violation{Path: path, Field: field, Kind: KindInvalidFormat, Message: `must be a "low-high" string or a number`}
		}
		expr = strconv.Itoa(n)
	}
	if _, err := schema.ParseRange(expr); err != nil {
		kind := KindInvalidFormat
		if errors.Is(err, schema.ErrRangeBounds) {
			kind = KindInvalidRange
		}
		return &Violation{Path: path, Field: field, Kind: kind, Message: err.Error()}
	}
	return nil
}

func isStringList(raw interface{}) bool {
	items, ok := raw.([]interface{})
	if !ok {
		return false
	}
	for _, it := range items {
		if _, ok := it.(string); !ok {
			return false
		}
	}
	return true
}
