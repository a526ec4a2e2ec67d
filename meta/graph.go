package meta

import "sort"

// TypeGraph is the per-keyspace dependency graph of concrete composite
// types. An edge A -> B means A declares a column whose value type is, or
// transitively contains, B. Polymorphic hierarchies contribute every
// concrete leaf variant, since leaves may add dependencies invisible on the
// root.
type TypeGraph struct {
	Keyspace string

	// node name -> entity whose CREATE TYPE realizes the node. Several
	// variant nodes may map to the same merged root entity.
	nodes map[string]*Entity
	edges map[string]map[string]bool
}

// GroupByKeyspace buckets composite entities by keyspace template. Entities
// that are not composites are ignored.
func GroupByKeyspace(entities []*Entity) map[string][]*Entity {
	groups := make(map[string][]*Entity)
	for _, e := range entities {
		if e.UDT {
			groups[e.Keyspace.Template] = append(groups[e.Keyspace.Template], e)
		}
	}
	return groups
}

// BuildTypeGraph builds the dependency graph for the composite entities of
// one keyspace.
func BuildTypeGraph(keyspace string, entities []*Entity) *TypeGraph {
	g := &TypeGraph{
		Keyspace: keyspace,
		nodes:    make(map[string]*Entity),
		edges:    make(map[string]map[string]bool),
	}
	for _, e := range entities {
		for _, node := range concreteNodes(e) {
			g.nodes[node.name] = e
			if g.edges[node.name] == nil {
				g.edges[node.name] = make(map[string]bool)
			}
			for _, f := range node.columns {
				for _, dep := range udtDecls(f.Type) {
					for _, depNode := range concreteNodeNames(dep) {
						if depNode == node.name {
							continue
						}
						g.edges[node.name][depNode] = true
					}
				}
			}
		}
	}
	return g
}

type graphNode struct {
	name    string
	columns []*Field
}

// concreteNodes expands an entity into its concrete graph nodes: the entity
// itself, or one node per leaf variant of a polymorphic hierarchy. A variant
// node sees the root-declared columns plus its own; columns folded in from
// other variants do not contribute dependencies to it.
func concreteNodes(e *Entity) []graphNode {
	var all []*Field
	for _, t := range e.Tables {
		all = append(all, t.columns...)
	}
	if len(e.Variants) == 0 {
		return []graphNode{{name: e.Name, columns: all}}
	}
	shared := make([]*Field, 0, len(all))
	for _, f := range all {
		if f.foldedFrom == "" {
			shared = append(shared, f)
		}
	}
	tags := make([]string, 0, len(e.Variants))
	for tag := range e.Variants {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	nodes := make([]graphNode, 0, len(tags))
	for _, tag := range tags {
		v := e.Variants[tag]
		cols := append(append([]*Field(nil), shared...), v.OwnColumns...)
		nodes = append(nodes, graphNode{name: v.Name, columns: cols})
	}
	return nodes
}

func concreteNodeNames(decl *EntityDecl) []string {
	if len(decl.Variants) == 0 {
		return []string{decl.Name}
	}
	names := make([]string, 0, len(decl.Variants))
	for _, sub := range decl.Variants {
		names = append(names, sub.Name)
	}
	sort.Strings(names)
	return names
}

// EmbeddedDecls collects every entity declaration a type spec transitively
// references through composite embedding.
func EmbeddedDecls(t *TypeSpec) []*EntityDecl { return udtDecls(t) }

// Dependencies returns the direct dependencies of a node, sorted.
func (g *TypeGraph) Dependencies(name string) []string {
	deps := make([]string, 0, len(g.edges[name]))
	for dep := range g.edges[name] {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// CreationOrder topologically sorts the graph and reverses the result so
// dependency-free types come first; creating types in the returned order
// never references a type that does not exist yet. One merged root entity
// appears once even when several of its variants are nodes. A cycle is a
// fatal CycleError naming the implicated types.
func (g *TypeGraph) CreationOrder() ([]*Entity, error) {
	// Kahn over incoming edges: a node nothing depends on is emitted first,
	// the reversed result is creation order.
	incoming := make(map[string]int, len(g.nodes))
	for name := range g.nodes {
		incoming[name] = 0
	}
	for _, deps := range g.edges {
		for dep := range deps {
			incoming[dep]++
		}
	}

	var queue []string
	for name, n := range incoming {
		if n == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var emitted []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		emitted = append(emitted, name)

		deps := g.Dependencies(name)
		for _, dep := range deps {
			incoming[dep]--
			if incoming[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(emitted) != len(g.nodes) {
		var stuck []string
		for name, n := range incoming {
			if n > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, &CycleError{Keyspace: g.Keyspace, Types: stuck}
	}

	seen := make(map[*Entity]bool)
	order := make([]*Entity, 0, len(emitted))
	for i := len(emitted) - 1; i >= 0; i-- {
		e := g.nodes[emitted[i]]
		if !seen[e] {
			seen[e] = true
			order = append(order, e)
		}
	}
	return order, nil
}
