package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lorehold/biblioplex/internal/models"
	"github.com/lorehold/biblioplex/internal/schema"
)

// CheckGraph validates the cross-entry surface: slug uniqueness, dependency
// resolution, soft wikilink resolution, and dependency cycles. Entries must
// arrive sorted by path; findings come back in a fixed order (duplicate
// slugs, unresolved dependencies, unresolved wikilinks, cycles).
func CheckGraph(entries []models.Entry) []Violation {
	var out []Violation

	ids, dups := identifierSet(entries)
	out = append(out, dups...)

	// Resolve declared dependencies into graph edges. Unresolved items are
	// hard violations and never enter the graph.
	adjacency := make(map[string][]string)
	for _, e := range entries {
		seen := make(map[string]struct{})
		for _, dep := range schema.Strings(e.Frontmatter, schema.FieldDependencies) {
			target, ok := ids[dep]
			if !ok {
				out = append(out, Violation{
					Path:    e.Path,
					Field:   schema.FieldDependencies,
					Kind:    KindUnresolvedDependency,
					Message: fmt.Sprintf("%q does not resolve to any entry", dep),
				})
				continue
			}
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			adjacency[e.Path] = append(adjacency[e.Path], target)
		}
	}

	// Body wikilinks are soft references: unresolved ones are advisory and
	// never feed the cycle graph.
	for _, e := range entries {
		for _, link := range e.Links {
			if _, ok := ids[link]; !ok {
				out = append(out, Violation{
					Path:     e.Path,
					Field:    "body",
					Kind:     KindUnresolvedDependency,
					Advisory: true,
					Message:  fmt.Sprintf("wikilink [[%s]] does not resolve to any entry", link),
				})
			}
		}
	}

	out = append(out, findCycles(entries, adjacency)...)
	return out
}

// identifierSet maps every identifier form to its owning entry path. Every
// entry answers to its path and its path without the .md extension; a
// frontmatter slug is a third form. Path forms win over slugs on collision,
// and a slug declared by two files flags the later one in path order.
func identifierSet(entries []models.Entry) (map[string]string, []Violation) {
	ids := make(map[string]string, len(entries)*3)
	for _, e := range entries {
		ids[e.Path] = e.Path
	}
	for _, e := range entries {
		trimmed := strings.TrimSuffix(e.Path, ".md")
		if _, taken := ids[trimmed]; !taken {
			ids[trimmed] = e.Path
		}
	}

	var dups []Violation
	slugOwner := make(map[string]string)
	for _, e := range entries {
		slug := schema.String(e.Frontmatter, schema.FieldSlug)
		if strings.TrimSpace(slug) == "" {
			continue
		}
		if owner, taken := slugOwner[slug]; taken {
			dups = append(dups, Violation{
				Path:    e.Path,
				Field:   schema.FieldSlug,
				Kind:    KindInvalidFormat,
				Message: fmt.Sprintf("slug %q already declared by %s", slug, owner),
			})
			continue
		}
		slugOwner[slug] = e.Path
		if _, taken := ids[slug]; !taken {
			ids[slug] = e.Path
		}
	}
	return ids, dups
}

// Node states for the iterative depth-first search.
const (
	stateUnvisited = iota
	stateInProgress
	stateDone
)

// findCycles runs an iterative three-state depth-first search over the
// dependency edges and reports each distinct cycle once, rotated to start
// at its lexicographically smallest member. A back edge into a node already
// attributed to a reported cycle is skipped so overlapping cycles are not
// reported twice.
func findCycles(entries []models.Entry, adjacency map[string][]string) []Violation {
	for _, targets := range adjacency {
		sort.Strings(targets)
	}

	type frame struct {
		node string
		next int
	}

	state := make(map[string]int, len(entries))
	onPath := make(map[string]int)
	attributed := make(map[string]struct{})
	var pathStack []string
	var cycles [][]string

	for _, e := range entries {
		if state[e.Path] != stateUnvisited {
			continue
		}
		stack := []frame{{node: e.Path}}
		state[e.Path] = stateInProgress
		onPath[e.Path] = 0
		pathStack = append(pathStack[:0], e.Path)

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			targets := adjacency[top.node]
			if top.next < len(targets) {
				t := targets[top.next]
				top.next++
				switch state[t] {
				case stateUnvisited:
					state[t] = stateInProgress
					onPath[t] = len(pathStack)
					pathStack = append(pathStack, t)
					stack = append(stack, frame{node: t})
				case stateInProgress:
					cycle := append([]string(nil), pathStack[onPath[t]:]...)
					if !anyAttributed(cycle, attributed) {
						for _, n := range cycle {
							attributed[n] = struct{}{}
						}
						cycles = append(cycles, rotateToSmallest(cycle))
					}
				}
			} else {
				state[top.node] = stateDone
				delete(onPath, top.node)
				pathStack = pathStack[:len(pathStack)-1]
				stack = stack[:len(stack)-1]
			}
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], "\x00") < strings.Join(cycles[j], "\x00")
	})

	out := make([]Violation, 0, len(cycles))
	for _, cy := range cycles {
		out = append(out, Violation{
			Path:    cy[0],
			Field:   schema.FieldDependencies,
			Kind:    KindCyclicDependency,
			Cycle:   cy,
			Message: "dependency cycle: " + strings.Join(cy, " -> ") + " -> " + cy[0],
		})
	}
	return out
}

func anyAttributed(cycle []string, attributed map[string]struct{}) bool {
	for _, n := range cycle {
		if _, hit := attributed[n]; hit {
			return true
		}
	}
	return false
}

// rotateToSmallest rotates the cycle so its lexicographically smallest
// member comes first, giving every cycle a canonical form.
func rotateToSmallest(cycle []string) []string {
	min := 0
	for i, p := range cycle {
		if p < cycle[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[min:]...)
	return append(out, cycle[:min]...)
}
