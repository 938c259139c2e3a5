package segment

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// LogicOp identifies the role of a node in the expression tree.
type LogicOp int

const (
	// OpLeaf marks an operand leaf; Leaf is set, Children is empty.
	OpLeaf LogicOp = iota
	// OpAnd matches when every child matches.
	OpAnd
	// OpOr matches when at least one child matches.
	OpOr
	// OpNot negates its single child.
	OpNot
)

// OperandKind identifies what a leaf compares against.
type OperandKind string

const (
	KindCustomVariable OperandKind = "custom_variable"
	KindUserList       OperandKind = "user"
	KindCountry        OperandKind = "country"
	KindRegion         OperandKind = "region"
	KindCity           OperandKind = "city"
	KindDeviceType     OperandKind = "device_type"
	KindOS             OperandKind = "os"
	KindUserAgent      OperandKind = "ua"
)

// Node is one node of a parsed targeting expression. Nodes are immutable
// after Parse and safe for concurrent evaluation.
type Node struct {
	Op       LogicOp
	Children []*Node
	Leaf     *Operand
}

// Operand is a leaf comparison: a kind, an optional target attribute name
// (custom variables only) and the raw DSL value, e.g. "wildcard(*pro*)".
type Operand struct {
	Kind   OperandKind
	Target string
	Value  string
}

// Requirements lists the resolved attribute groups an expression reads.
// The rule evaluator uses it to decide whether gateway resolution is needed
// before evaluation.
type Requirements struct {
	Location bool
	Device   bool
}

// Requires walks the tree and reports which resolved attribute groups any
// leaf compares against.
func (n *Node) Requires() Requirements {
	var req Requirements
	n.collectRequirements(&req)
	return req
}

func (n *Node) collectRequirements(req *Requirements) {
	if n == nil {
		return
	}
	if n.Leaf != nil {
		switch n.Leaf.Kind {
		case KindCountry, KindRegion, KindCity:
			req.Location = true
		case KindDeviceType, KindOS, KindUserAgent:
			req.Device = true
		}
	}
	for _, child := range n.Children {
		child.collectRequirements(req)
	}
}

// Parse builds an expression tree from the wire JSON. A missing, null or
// empty expression yields a nil tree, which matches everyone.
func Parse(raw json.RawMessage) (*Node, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch string(raw) {
	case "null", "{}":
		return nil, nil
	}
	return parseNode(raw)
}

func parseNode(raw json.RawMessage) (*Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedExpression, err)
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("%w: node must have exactly one key, got %d", ErrMalformedExpression, len(fields))
	}

	for key, value := range fields {
		switch key {
		case "and", "or":
			return parseCombinator(key, value)
		case "not":
			child, err := parseNode(value)
			if err != nil {
				return nil, err
			}
			return &Node{Op: OpNot, Children: []*Node{child}}, nil
		default:
			return parseOperand(OperandKind(key), value)
		}
	}
	return nil, ErrMalformedExpression // unreachable, len(fields) == 1
}

func parseCombinator(key string, raw json.RawMessage) (*Node, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %q expects a list of nodes: %w", ErrMalformedExpression, key, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %q must have at least one child", ErrMalformedExpression, key)
	}

	op := OpAnd
	if key == "or" {
		op = OpOr
	}
	node := &Node{Op: op, Children: make([]*Node, 0, len(items))}
	for _, item := range items {
		child, err := parseNode(item)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func parseOperand(kind OperandKind, raw json.RawMessage) (*Node, error) {
	switch kind {
	case KindCustomVariable:
		var pair map[string]json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil {
			return nil, fmt.Errorf("%w: custom_variable expects an object: %w", ErrMalformedExpression, err)
		}
		if len(pair) != 1 {
			return nil, fmt.Errorf("%w: custom_variable must target exactly one attribute", ErrMalformedExpression)
		}
		for target, value := range pair {
			expected, err := scalarString(value)
			if err != nil {
				return nil, err
			}
			return &Node{Leaf: &Operand{Kind: kind, Target: target, Value: expected}}, nil
		}
		return nil, ErrMalformedExpression // unreachable

	case KindUserList, KindCountry, KindRegion, KindCity, KindDeviceType, KindOS, KindUserAgent:
		expected, err := scalarString(raw)
		if err != nil {
			return nil, err
		}
		return &Node{Leaf: &Operand{Kind: kind, Value: expected}}, nil

	default:
		return nil, fmt.Errorf("%w: unknown operand kind %q", ErrMalformedExpression, kind)
	}
}

// scalarString normalizes a JSON scalar operand value to its string form.
// Numbers keep their shortest representation so "123" and 123 compare equal.
func scalarString(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedExpression, err)
	}
	switch value := v.(type) {
	case string:
		return value, nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(value), nil
	default:
		return "", fmt.Errorf("%w: operand value must be a scalar, got %T", ErrMalformedExpression, v)
	}
}
