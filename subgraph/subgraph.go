// Package subgraph partitions a graph.Graph into maximal per-backend
// regions: each View is a non-owning window over a
// connected, acyclic, externally-convex set of member layers, grounded
// on the teacher's core.InducedSubgraph/core.UnweightedView pattern of
// building a non-mutating view by copying a member set under read
// locks rather than cloning the underlying graph.
package subgraph

import "github.com/katalvlaran/graphc/graph"

// View is a non-owning window over a region of a Graph: its member
// layers plus the slots that cross the region's boundary.
type View struct {
	Members []graph.LayerRef

	// ExternalInputs are input slots of member layers whose producer is
	// not itself a member.
	ExternalInputs []graph.ExternalInput

	// ExternalOutputs are output slots of member layers that feed at
	// least one non-member consumer.
	ExternalOutputs []graph.ExternalOutput
}

// ExternalView adapts a View to the graph.ExternalView shape
// SubstituteSubgraph expects.
func (v View) ExternalView() graph.ExternalView {
	return graph.ExternalView{Inputs: v.ExternalInputs, Outputs: v.ExternalOutputs}
}

// Predicate selects which layers are eligible for partitioning (e.g.
// "backend id equals X and kind is neither Input nor Output").
type Predicate func(l *graph.Layer) bool

// Substitution pairs a View the backend wants replaced with the
// ReplacementView it should be replaced by. Applying one is a direct
// graph.SubstituteSubgraph(Substitutable.ExternalView(),
// Replacement.ExternalView()) call.
type Substitution struct {
	Substitutable View
	Replacement   View
}

// OptimizationViews is what a backend's OptimizeSubgraph returns: the
// substitutions it wants applied, the regions it attempted and gave up
// on, and (implicitly, by omission from both lists) the regions it left
// untouched.
type OptimizationViews struct {
	Substitutions []Substitution
	Failed        []View
}

// Ok reports whether the backend produced no failed subgraphs.
func (o OptimizationViews) Ok() bool {
	return len(o.Failed) == 0
}

// Select partitions every layer satisfying pred into maximal acyclic,
// externally-convex regions. Because Graph.TopologicalOrder
// already places every producer before its consumers, a single forward
// pass suffices: each layer's split id is the max of its producers'
// propagated ids. A selected layer that no region reaches starts a fresh
// id, and an unselected layer fed by a selected one hands its children a
// fresh id, so a selected layer reached through it lands in a later
// region. That is exactly "each layer takes the maximum split id reaching
// it" without needing a fixpoint/worklist.
func Select(g *graph.Graph, pred Predicate) []View {
	const unassigned = -1
	splitID := map[graph.LayerRef]int{}
	propagated := map[graph.LayerRef]int{} // id handed to this layer's children
	nextID := 0

	order := g.TopologicalOrder()
	for _, ref := range order {
		l := g.Layer(ref)
		if l == nil {
			continue
		}
		maxIncoming := unassigned
		fromSelected := false
		for _, in := range l.Inputs {
			if !in.Bound() {
				continue
			}
			producer, _ := in.Producer()
			if id := propagated[producer]; id > maxIncoming {
				maxIncoming = id
			}
			if splitID[producer] != unassigned {
				fromSelected = true
			}
		}
		if pred(l) {
			id := maxIncoming
			if id == unassigned {
				id = nextID
				nextID++
			}
			splitID[ref] = id
			propagated[ref] = id
		} else {
			splitID[ref] = unassigned
			propagated[ref] = maxIncoming
			if fromSelected {
				propagated[ref] = nextID
				nextID++
			}
		}
	}

	groups := map[int][]graph.LayerRef{}
	for _, ref := range order {
		id := splitID[ref]
		if id == unassigned {
			continue
		}
		groups[id] = append(groups[id], ref)
	}

	views := make([]View, 0, len(groups))
	for id := 0; id < nextID; id++ {
		members := groups[id]
		if len(members) == 0 {
			continue
		}
		views = append(views, buildView(g, members))
	}
	return views
}

func buildView(g *graph.Graph, members []graph.LayerRef) View {
	memberSet := make(map[graph.LayerRef]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}
	v := View{Members: members}
	for _, ref := range members {
		l := g.Layer(ref)
		if l == nil {
			continue
		}
		for i, in := range l.Inputs {
			if !in.Bound() {
				continue
			}
			producer, _ := in.Producer()
			if !memberSet[producer] {
				v.ExternalInputs = append(v.ExternalInputs, graph.ExternalInput{Layer: ref, Slot: i})
			}
		}
		for i, out := range l.Outputs {
			for _, c := range out.Consumers() {
				if !memberSet[c.Layer] {
					v.ExternalOutputs = append(v.ExternalOutputs, graph.ExternalOutput{Layer: ref, Slot: i})
					break
				}
			}
		}
	}
	return v
}
