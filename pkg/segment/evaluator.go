package segment

import (
	"log/slog"
	"strconv"
	"strings"
)

// Location holds resolved geo attributes, distinct from the raw custom
// variable bag. Populated by the gateway resolver or supplied by the caller.
type Location struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

// Device holds resolved device attributes derived from the user agent.
type Device struct {
	Type           string `json:"type,omitempty"`
	OS             string `json:"os,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	UserAgent      string `json:"userAgent,omitempty"`
}

// Attributes is the merged per-user context an expression is evaluated
// against: the caller-supplied custom variables plus resolved location and
// device signals when available.
type Attributes struct {
	UserID   string
	Custom   map[string]any
	Location *Location
	Device   *Device
}

// Evaluator interprets parsed expression trees against user attributes.
// It carries no per-call state and is safe for concurrent use.
type Evaluator struct {
	log *slog.Logger
}

// NewEvaluator creates an evaluator. A nil logger discards diagnostics.
func NewEvaluator(log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{log: log}
}

// Evaluate reports whether the user matches the expression. A nil tree
// matches everyone. Evaluation fails closed: any panic while interpreting a
// node is recovered here, logged, and treated as a non-match.
func (e *Evaluator) Evaluate(node *Node, attrs *Attributes) (matched bool) {
	if node == nil {
		return true
	}
	if attrs == nil {
		attrs = &Attributes{}
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("segment evaluation recovered, treating as no match", "panic", r)
			matched = false
		}
	}()
	return e.eval(node, attrs)
}

func (e *Evaluator) eval(node *Node, attrs *Attributes) bool {
	switch node.Op {
	case OpAnd:
		for _, child := range node.Children {
			if !e.eval(child, attrs) {
				return false
			}
		}
		return true

	case OpOr:
		for _, child := range node.Children {
			if e.eval(child, attrs) {
				return true
			}
		}
		return false

	case OpNot:
		if len(node.Children) == 0 || node.Children[0] == nil {
			return false
		}
		return !e.eval(node.Children[0], attrs)

	default:
		return e.matchLeaf(node.Leaf, attrs)
	}
}

func (e *Evaluator) matchLeaf(op *Operand, attrs *Attributes) bool {
	if op == nil {
		return false
	}
	switch op.Kind {
	case KindCustomVariable:
		raw, ok := attrs.Custom[op.Target]
		if !ok {
			return false
		}
		return Match(op.Value, attributeString(raw))

	case KindUserList:
		if attrs.UserID == "" {
			return false
		}
		for id := range strings.SplitSeq(op.Value, ",") {
			if strings.TrimSpace(id) == attrs.UserID {
				return true
			}
		}
		return false

	case KindCountry:
		return attrs.Location != nil && Match(op.Value, attrs.Location.Country)
	case KindRegion:
		return attrs.Location != nil && Match(op.Value, attrs.Location.Region)
	case KindCity:
		return attrs.Location != nil && Match(op.Value, attrs.Location.City)

	case KindDeviceType:
		return attrs.Device != nil && Match(op.Value, attrs.Device.Type)
	case KindOS:
		return attrs.Device != nil && Match(op.Value, attrs.Device.OS)
	case KindUserAgent:
		return attrs.Device != nil && Match(op.Value, attrs.Device.UserAgent)

	default:
		e.log.Warn("unknown operand kind in segment expression", "kind", string(op.Kind))
		return false
	}
}

// attributeString normalizes a custom variable value the same way operand
// values are normalized at parse time.
func attributeString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case nil:
		return ""
	default:
		return ""
	}
}
