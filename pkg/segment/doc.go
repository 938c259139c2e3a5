// Package segment parses and evaluates audience targeting expressions.
//
// A campaign's segments arrive as a JSON tree of logical combinators (and, or,
// not) over operand leaves: custom variable comparisons, user-list membership,
// resolved location fields (country, region, city) and resolved device fields
// (device_type, os, ua). The tree is parsed once into a tagged AST and then
// interpreted against a user's merged attribute set:
//
//	node, err := segment.Parse(campaign.Segments)
//	if err != nil {
//		// malformed expression, rule fails closed
//	}
//	eval := segment.NewEvaluator(log)
//	matched := eval.Evaluate(node, &segment.Attributes{
//		UserID: "user-1",
//		Custom: map[string]any{"plan": "pro"},
//	})
//
// Operand values support an inline comparator grammar: a bare value means
// trimmed, case-insensitive equality (numeric-aware, so "123.0" equals "123"),
// wildcard(pattern) is a case-insensitive glob, regex(pattern) a regular
// expression, and gt/gte/lt/lte(version) compare dotted numeric version
// tuples segment-wise with zero padding, so "1.10" is greater than "1.1".
//
// Evaluation never panics and never returns an error: anything malformed at
// match time is treated as a non-match, except for the lt/lte comparators
// which treat unparsable input as the smallest possible version and therefore
// match. That asymmetry is shared with the SDKs on other platforms and is
// part of the contract.
package segment
