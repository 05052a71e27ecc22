package config

import (
	"sort"
	"strings"

	"github.com/ontodev/valve-go/internal/errs"
)

// sortTables topologically sorts user tables by the
// union of foreign and under edges, prepending nothing here (the caller
// prepends message/history). On a cycle, every simple cycle found is
// listed in the returned error, not just the first one found.
func sortTables(cfg *Config) ([]string, error) {
	var names []string
	for name, t := range cfg.Tables {
		if t.Type == KindUser {
			names = append(names, name)
		}
	}
	sort.Strings(names) // deterministic iteration order before sorting

	deps := buildDependencyGraph(cfg, names)

	if cycles := findAllSimpleCycles(names, deps); len(cycles) > 0 {
		var lines []string
		for _, c := range cycles {
			lines = append(lines, strings.Join(c, " -> "))
		}
		return nil, errs.Configf("dependency cycle(s) detected among tables:\n%s", strings.Join(lines, "\n"))
	}

	sorted := topologicalSort(names, deps)
	return sorted, nil
}

// buildDependencyGraph returns table -> tables it depends on (must be
// loaded first): the targets of its foreign and under edges.
func buildDependencyGraph(cfg *Config, names []string) map[string][]string {
	deps := map[string][]string{}
	for _, name := range names {
		cons := cfg.Constraints[name]
		if cons == nil {
			continue
		}
		seen := map[string]bool{}
		add := func(target string) {
			if target != "" && target != name && !seen[target] {
				seen[target] = true
				deps[name] = append(deps[name], target)
			}
		}
		for _, fe := range cons.Foreign {
			add(fe.ForeignTable)
		}
		for _, ue := range cons.Under {
			add(ue.TreeTable)
		}
	}
	return deps
}

// topologicalSort performs a depth-first topological sort with a single
// visited set. It assumes, as guaranteed by the caller, that the graph is already
// known to be acyclic, and produces dependencies before dependents.
func topologicalSort(items []string, dependencies map[string][]string) []string {
	var sorted []string
	visited := map[string]bool{}

	var visit func(string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range dependencies[id] {
			visit(dep)
		}
		sorted = append(sorted, id)
	}

	for _, item := range items {
		visit(item)
	}
	return sorted
}

// findAllSimpleCycles enumerates every simple cycle in the dependency
// graph via DFS path-tracking, so a config error can name every offending
// cycle rather than only the first one encountered.
func findAllSimpleCycles(names []string, deps map[string][]string) [][]string {
	var cycles [][]string
	seenCycle := map[string]bool{}

	var path []string
	onPath := map[string]bool{}

	var visit func(start, node string)
	visit = func(start, node string) {
		path = append(path, node)
		onPath[node] = true
		for _, next := range deps[node] {
			if next == start {
				cycle := append(append([]string{}, path...), start)
				key := canonicalCycleKey(cycle)
				if !seenCycle[key] {
					seenCycle[key] = true
					cycles = append(cycles, cycle)
				}
			} else if !onPath[next] {
				visit(start, next)
			}
		}
		path = path[:len(path)-1]
		onPath[node] = false
	}

	for _, name := range names {
		visit(name, name)
	}
	return cycles
}

// canonicalCycleKey normalizes a cycle (which repeats its start node at
// the end) so rotations of the same cycle dedupe.
func canonicalCycleKey(cycle []string) string {
	core := cycle[:len(cycle)-1]
	best := strings.Join(core, ",")
	for i := 1; i < len(core); i++ {
		rotated := append(append([]string{}, core[i:]...), core[:i]...)
		candidate := strings.Join(rotated, ",")
		if candidate < best {
			best = candidate
		}
	}
	return best
}
