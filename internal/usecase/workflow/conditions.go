package workflow

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/cespare/xxhash/v2"
)

// operand is a condition value parsed once against its field's kind.
type operand struct {
	single value
	list   []value
}

type compiledCondition struct {
	path  string
	field field
	known bool
	op    domain.Operator
	logic domain.Connector
	arg   operand
	// malformed conditions evaluate to false whatever the entity holds
	malformed bool
}

// chain is a compiled condition list, evaluated left to right.
type chain []compiledCondition

func compileChain(conditions []domain.Condition) chain {
	out := make(chain, 0, len(conditions))
	for _, c := range conditions {
		out = append(out, compileCondition(c))
	}
	return out
}

func compileCondition(c domain.Condition) compiledCondition {
	f, path, known := lookupField(c.Field)
	cc := compiledCondition{
		path:  path,
		field: f,
		known: known,
		op:    domain.Operator(strings.ToLower(strings.TrimSpace(string(c.Operator)))),
		logic: domain.Connector(strings.ToUpper(strings.TrimSpace(string(c.Logic)))),
	}
	if !known {
		return cc
	}

	switch cc.op {
	case domain.OpIn, domain.OpNotIn:
		items, ok := asList(c.Value)
		if !ok {
			cc.malformed = true
			return cc
		}
		for _, item := range items {
			v, ok := parse(f.kind, item)
			if !ok {
				cc.malformed = true
				return cc
			}
			cc.arg.list = append(cc.arg.list, v)
		}
	case domain.OpEquals, domain.OpNotEquals:
		v, ok := parse(f.kind, c.Value)
		cc.arg.single, cc.malformed = v, !ok
	case domain.OpGreaterThan, domain.OpLessThan:
		v, ok := parse(kindNumber, c.Value)
		cc.arg.single, cc.malformed = v, !ok || f.kind != kindNumber
	case domain.OpContains:
		s, ok := c.Value.(string)
		cc.arg.single, cc.malformed = str(strings.ToLower(s)), !ok || f.kind != kindString
	default:
		cc.malformed = true
	}
	return cc
}

func (cc compiledCondition) eval(ctx *evalContext) bool {
	if cc.malformed {
		return false
	}
	var v value
	if cc.known {
		v = cc.field.get(ctx)
	}
	if !v.ok {
		// undefined compares false, except that it is never equal to anything
		return cc.op == domain.OpNotEquals
	}

	switch cc.op {
	case domain.OpEquals:
		return equal(v, cc.arg.single)
	case domain.OpNotEquals:
		return !equal(v, cc.arg.single)
	case domain.OpGreaterThan:
		return v.n > cc.arg.single.n
	case domain.OpLessThan:
		return v.n < cc.arg.single.n
	case domain.OpContains:
		return strings.Contains(strings.ToLower(v.s), cc.arg.single.s)
	case domain.OpIn:
		return inList(v, cc.arg.list)
	case domain.OpNotIn:
		return !inList(v, cc.arg.list)
	}
	return false
}

// evaluate folds the chain and returns the result plus the signature of a match. An
// empty chain is false, and a false chain has no signature.
func (ch chain) evaluate(ctx *evalContext) (bool, string) {
	if len(ch) == 0 {
		return false, ""
	}
	var result bool
	for i, cc := range ch {
		outcome := cc.eval(ctx)
		if i == 0 {
			result = outcome
		} else if cc.logic == domain.ConnectorOr {
			result = result || outcome
		} else {
			result = result && outcome
		}
	}
	if !result {
		return false, ""
	}
	return true, ch.signature()
}

// signature identifies the chain, not the branch that matched it: a rule stays matched
// under one signature until it evaluates false and is disarmed. Neither elapsed time nor
// an action's effect on a matching field can produce a second key while it holds.
func (ch chain) signature() string {
	h := xxhash.New()
	for _, cc := range ch {
		_, _ = h.WriteString(cc.path)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(string(cc.op))
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(string(cc.logic))
		_, _ = h.WriteString("\x01")
	}
	_, _ = h.WriteString("matched")
	return hex.EncodeToString(h.Sum(nil))
}

func equal(a, b value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case kindNumber:
		return a.n == b.n
	case kindBool:
		return a.b == b.b
	}
	return a.s == b.s
}

func inList(v value, list []value) bool {
	for _, item := range list {
		if equal(v, item) {
			return true
		}
	}
	return false
}

func asList(raw any) ([]any, bool) {
	switch l := raw.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case string:
		// "LOW,MEDIUM"
		parts := strings.Split(l, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}

// parse converts a raw rule value, as decoded from JSON or YAML, to the field's kind.
func parse(k kind, raw any) (value, bool) {
	switch k {
	case kindNumber:
		n, ok := toFloat(raw)
		if !ok || math.IsNaN(n) {
			return value{}, false
		}
		return num(n), true
	case kindBool:
		switch b := raw.(type) {
		case bool:
			return boolean(b), true
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			return boolean(parsed), err == nil
		}
		return value{}, false
	}
	switch s := raw.(type) {
	case string:
		return str(s), true
	case fmt.Stringer:
		return str(s.String()), true
	}
	return value{}, false
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
