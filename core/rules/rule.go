package rules

import (
	"fmt"

	"example.com/fuzzy-infusion/base/floats"
	"example.com/fuzzy-infusion/core/fuzzy"
)

type NodeKind uint8

const (
	NodeTerm NodeKind = iota + 1
	NodeAnd
	NodeOr
)

// Node is one vertex of an antecedent tree, a closed set of variants tagged
// by kind: a (variable, term) leaf, a fuzzy AND (minimum of children), or a
// fuzzy OR (maximum of children). The zero Node is invalid.
type Node struct {
	Kind     NodeKind
	Variable string
	Term     string
	Children []Node
}

func Term(variable, term string) Node {
	return Node{Kind: NodeTerm, Variable: variable, Term: term}
}

func And(children ...Node) Node {
	return Node{Kind: NodeAnd, Children: children}
}

func Or(children ...Node) Node {
	return Node{Kind: NodeOr, Children: children}
}

func (n Node) validate(reg *fuzzy.Registry, output string) error {
	switch n.Kind {
	case NodeTerm:
		if n.Variable == output {
			return fmt.Errorf("%w: antecedent must not reference output variable %q",
				fuzzy.ErrConfiguration, output)
		}
		v, ok := reg.Lookup(n.Variable)
		if !ok {
			return fmt.Errorf("%w: unknown variable %q in antecedent",
				fuzzy.ErrConfiguration, n.Variable)
		}
		if _, ok := v.Term(n.Term); !ok {
			return fmt.Errorf("%w: unknown term %q of variable %q in antecedent",
				fuzzy.ErrConfiguration, n.Term, n.Variable)
		}
		return nil
	case NodeAnd, NodeOr:
		if len(n.Children) == 0 {
			return fmt.Errorf("%w: empty AND/OR node in antecedent", fuzzy.ErrConfiguration)
		}
		for _, c := range n.Children {
			err := c.validate(reg, output)
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid antecedent node", fuzzy.ErrConfiguration)
	}
}

// strength resolves the antecedent against a fuzzification snapshot.
// References are validated when the rule is added, so an unresolvable leaf
// here is a programmer error.
func (n Node) strength(snap fuzzy.Snapshot) float64 {
	switch n.Kind {
	case NodeTerm:
		d, ok := snap.Degree(n.Variable, n.Term)
		if !ok {
			panic("unexpected antecedent reference")
		}
		return d
	case NodeAnd:
		s := n.Children[0].strength(snap)
		for _, c := range n.Children[1:] {
			cs := c.strength(snap)
			if cs < s {
				s = cs
			}
		}
		return s
	case NodeOr:
		s := n.Children[0].strength(snap)
		for _, c := range n.Children[1:] {
			cs := c.strength(snap)
			if cs > s {
				s = cs
			}
		}
		return s
	default:
		panic("unexpected antecedent node kind")
	}
}

func (n Node) appendContributions(snap fuzzy.Snapshot, cs []Contribution) []Contribution {
	if n.Kind == NodeTerm {
		d, _ := snap.Degree(n.Variable, n.Term)
		return append(cs, Contribution{Variable: n.Variable, Term: n.Term, Degree: d})
	}
	for _, c := range n.Children {
		cs = c.appendContributions(snap, cs)
	}
	return cs
}

// Rule is one fuzzy implication: an antecedent tree and a weighted
// consequent term of the base's output variable. Rules are immutable and
// keep declaration order; order affects only trace presentation, since
// aggregation is commutative.
type Rule struct {
	Name       string
	Antecedent Node
	Consequent string
	Weight     float64
}

// Contribution is one antecedent leaf's membership degree, recorded for the
// activation trace.
type Contribution struct {
	Variable string
	Term     string
	Degree   float64
}

// Activation is one rule's firing result for one evaluation.
type Activation struct {
	Rule          string
	Consequent    string
	Strength      float64
	Contributions []Contribution
}

// Base is the ordered rule collection of a single-output controller, bound
// to the registry that defines its vocabulary. Configure once at startup,
// then treat as read-only.
type Base struct {
	reg    *fuzzy.Registry
	output string
	rules  []Rule
}

func NewBase(reg *fuzzy.Registry, output string) (*Base, error) {
	v, ok := reg.Lookup(output)
	if !ok {
		return nil, fmt.Errorf("%w: unknown output variable %q", fuzzy.ErrConfiguration, output)
	}
	if len(v.Terms()) == 0 {
		return nil, fmt.Errorf("%w: output variable %q has no terms", fuzzy.ErrConfiguration, output)
	}
	return &Base{reg: reg, output: output}, nil
}

func (b *Base) Output() string { return b.output }

func (b *Base) Len() int { return len(b.rules) }

// Rules returns all rules in declaration order. The returned slice must not
// be modified.
func (b *Base) Rules() []Rule { return b.rules }

// Add registers a rule. The weight scales the firing strength and must be
// in (0, 1].
func (b *Base) Add(name string, antecedent Node, consequent string, weight float64) error {
	if name == "" {
		return fmt.Errorf("%w: empty rule name", fuzzy.ErrConfiguration)
	}
	for _, r := range b.rules {
		if r.Name == name {
			return fmt.Errorf("%w: rule %q already defined", fuzzy.ErrConfiguration, name)
		}
	}
	err := antecedent.validate(b.reg, b.output)
	if err != nil {
		return fmt.Errorf("rule %q: %w", name, err)
	}
	out, _ := b.reg.Lookup(b.output)
	if _, ok := out.Term(consequent); !ok {
		return fmt.Errorf("%w: rule %q: consequent %q is not a term of output variable %q",
			fuzzy.ErrConfiguration, name, consequent, b.output)
	}
	if !(weight > 0 && weight <= 1) {
		return fmt.Errorf("%w: rule %q: weight %v outside (0, 1]",
			fuzzy.ErrConfiguration, name, weight)
	}
	b.rules = append(b.rules, Rule{
		Name:       name,
		Antecedent: antecedent,
		Consequent: consequent,
		Weight:     weight,
	})
	return nil
}

// AddString parses the antecedent text (see Parse) and registers the rule.
func (b *Base) AddString(name, antecedent, consequent string, weight float64) error {
	n, err := Parse(antecedent)
	if err != nil {
		return fmt.Errorf("rule %q: %w", name, err)
	}
	return b.Add(name, n, consequent, weight)
}

// Evaluate computes every rule's firing strength against the snapshot:
// antecedent resolution, scaled by weight, clamped to [0, 1]. The result
// covers all rules in declaration order, including zero-strength ones.
// Pure function of the snapshot.
func (b *Base) Evaluate(snap fuzzy.Snapshot) []Activation {
	acts := make([]Activation, 0, len(b.rules))
	for _, r := range b.rules {
		acts = append(acts, Activation{
			Rule:          r.Name,
			Consequent:    r.Consequent,
			Strength:      floats.Clamp(r.Antecedent.strength(snap)*r.Weight, 0, 1),
			Contributions: r.Antecedent.appendContributions(snap, nil),
		})
	}
	return acts
}
