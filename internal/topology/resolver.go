package topology

// Query selects part of the topology. Empty selectors match everything.
type Query struct {
	Datacenter string
	Node       string
	// LoadAll=false keeps only each datacenter's default entry, its first
	// configured node.
	LoadAll bool
}

// Resolve narrows the topology to the ordered (datacenter, node) pairs a
// query selects.
//
//   - no selector: every node of every datacenter
//   - datacenter only: every node of that datacenter
//   - node only: the first node with that name, searching datacenters in order
//   - both: exact membership lookup
//
// Unknown datacenters and nodes yield a *NotFoundError.
func (t *Topology) Resolve(q Query) ([]Target, error) {
	var targets []Target

	switch {
	case q.Datacenter == "" && q.Node == "":
		targets = make([]Target, 0, t.NodeCount())
		for i := range t.Datacenters {
			dc := &t.Datacenters[i]
			for _, n := range dc.Nodes {
				targets = append(targets, Target{Datacenter: dc, Node: n})
			}
		}

	case q.Node == "":
		dc, ok := t.Datacenter(q.Datacenter)
		if !ok {
			return nil, &NotFoundError{Kind: KindDatacenter, Name: q.Datacenter}
		}
		targets = make([]Target, 0, len(dc.Nodes))
		for _, n := range dc.Nodes {
			targets = append(targets, Target{Datacenter: dc, Node: n})
		}

	case q.Datacenter == "":
		target, ok := t.findNode(q.Node)
		if !ok {
			return nil, &NotFoundError{Kind: KindNode, Name: q.Node}
		}
		return []Target{target}, nil

	default:
		dc, ok := t.Datacenter(q.Datacenter)
		if !ok {
			return nil, &NotFoundError{Kind: KindDatacenter, Name: q.Datacenter}
		}
		n, ok := dc.Node(q.Node)
		if !ok {
			return nil, &NotFoundError{Kind: KindNode, Name: q.Node, Datacenter: q.Datacenter}
		}
		return []Target{{Datacenter: dc, Node: n}}, nil
	}

	if !q.LoadAll {
		targets = DefaultsOnly(targets)
	}
	return targets, nil
}

// ResolveID resolves a composite NodeID. A bare node name is accepted too and
// searched across datacenters.
func (t *Topology) ResolveID(id string) (Target, error) {
	q := Query{Node: id, LoadAll: true}
	if dc, node, ok := ParseNodeID(id); ok {
		q = Query{Datacenter: dc, Node: node, LoadAll: true}
	}
	targets, err := t.Resolve(q)
	if err != nil {
		if nf, ok := err.(*NotFoundError); ok && nf.Kind == KindDatacenter {
			// An id whose datacenter part is unknown is reported as a missing node.
			return Target{}, &NotFoundError{Kind: KindNode, Name: id}
		}
		return Target{}, err
	}
	return targets[0], nil
}

// Candidates returns nodes in fallback order for single-target passthrough
// calls: the selected scope when a selector is set, otherwise the default
// datacenter first and then every other datacenter in configured order.
func (t *Topology) Candidates(datacenter, node string) ([]Target, error) {
	if datacenter != "" || node != "" {
		return t.Resolve(Query{Datacenter: datacenter, Node: node, LoadAll: true})
	}

	def := t.DefaultDatacenter()
	targets := make([]Target, 0, t.NodeCount())
	if def != nil {
		for _, n := range def.Nodes {
			targets = append(targets, Target{Datacenter: def, Node: n})
		}
	}
	for i := range t.Datacenters {
		dc := &t.Datacenters[i]
		if dc == def {
			continue
		}
		for _, n := range dc.Nodes {
			targets = append(targets, Target{Datacenter: dc, Node: n})
		}
	}
	return targets, nil
}

// DefaultsOnly keeps the first target of every datacenter, preserving order.
func DefaultsOnly(targets []Target) []Target {
	seen := make(map[string]bool)
	out := make([]Target, 0, len(targets))
	for _, tg := range targets {
		if seen[tg.Datacenter.Name] {
			continue
		}
		seen[tg.Datacenter.Name] = true
		out = append(out, tg)
	}
	return out
}

func (t *Topology) findNode(name string) (Target, bool) {
	for i := range t.Datacenters {
		dc := &t.Datacenters[i]
		if n, ok := dc.Node(name); ok {
			return Target{Datacenter: dc, Node: n}, true
		}
	}
	return Target{}, false
}
