package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/objcore/internal/classdb"
)

// InheritanceError reports classes whose parent chains loop back on
// themselves. Each cycle path starts and ends with the same class.
type InheritanceError struct {
	Cycles [][]string
}

func (e *InheritanceError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = strings.Join(c, " → ")
	}
	return "inheritance cycle: " + strings.Join(parts, "; ")
}

// inheritanceGraph maps class → parent classes declared in the same set.
type inheritanceGraph map[string][]string

// OrderClasses returns infos ordered so every parent precedes its children.
// Classes without dependencies keep their relative input order.
//
// known reports classes registered outside the set (such as "Object"); it may
// be nil. A parent that is neither in the set nor known is a CompileError,
// and so is a class name declared twice. Parent chains that form a loop are
// reported together in an InheritanceError.
func OrderClasses(infos []classdb.ClassInfo, known func(string) bool) ([]classdb.ClassInfo, error) {
	byName := make(map[string]classdb.ClassInfo, len(infos))
	graph := make(inheritanceGraph, len(infos))
	for _, info := range infos {
		if _, dup := byName[info.Name]; dup {
			return nil, &CompileError{Field: "name", Message: fmt.Sprintf("class %s declared twice", info.Name)}
		}
		byName[info.Name] = info
		graph[info.Name] = []string{}
	}

	for _, info := range infos {
		if info.Parent == "" {
			continue
		}
		if _, ok := byName[info.Parent]; ok {
			graph[info.Name] = append(graph[info.Name], info.Parent)
			continue
		}
		if known == nil || !known(info.Parent) {
			return nil, &CompileError{
				Field:   "parent",
				Message: fmt.Sprintf("unknown parent class %s of %s", info.Parent, info.Name),
			}
		}
	}

	if cycles := findCycles(graph); len(cycles) > 0 {
		return nil, &InheritanceError{Cycles: cycles}
	}

	ordered := make([]classdb.ClassInfo, 0, len(infos))
	placed := make(map[string]bool, len(infos))
	var place func(name string)
	place = func(name string) {
		if placed[name] {
			return
		}
		placed[name] = true
		for _, parent := range graph[name] {
			place(parent)
		}
		ordered = append(ordered, byName[name])
	}
	for _, info := range infos {
		place(info.Name)
	}
	return ordered, nil
}

// Register orders infos and registers them into db. It stops at the first
// registration error.
func Register(db *classdb.DB, infos []classdb.ClassInfo) ([]*classdb.Class, error) {
	ordered, err := OrderClasses(infos, func(name string) bool {
		_, ok := db.Lookup(name)
		return ok
	})
	if err != nil {
		return nil, err
	}

	classes := make([]*classdb.Class, 0, len(ordered))
	for _, info := range ordered {
		c, err := db.Register(info)
		if err != nil {
			return classes, fmt.Errorf("register class %s: %w", info.Name, err)
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// findCycles returns every inheritance loop, each as a closed path, sorted
// for stable output.
func findCycles(graph inheritanceGraph) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, reconstructCyclePath(scc, graph))
		}
	}
	slices.SortFunc(cycles, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})
	return cycles
}

func hasSelfLoop(node string, graph inheritanceGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results do not depend on map order.
func tarjanSCC(graph inheritanceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC: pop it off the stack
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath walks parent edges from the smallest class name in
// the SCC until it returns to the start.
func reconstructCyclePath(scc []string, graph inheritanceGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := slices.Min(scc)
	path := []string{start}
	current := start
	for {
		var next string
		for _, parent := range graph[current] {
			if members[parent] {
				next = parent
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		current = next
	}
}
