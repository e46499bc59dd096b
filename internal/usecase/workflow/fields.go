package workflow

import (
	"strings"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
)

// value is a resolved field value; ok is false when the field is undefined for the entity.
type value struct {
	kind kind
	s    string
	n    float64
	b    bool
	ok   bool
}

func str(s string) value   { return value{kind: kindString, s: s, ok: true} }
func num(n float64) value  { return value{kind: kindNumber, n: n, ok: true} }
func boolean(b bool) value { return value{kind: kindBool, b: b, ok: true} }

func optional(s *string) value {
	if s == nil {
		return value{kind: kindString}
	}
	return str(*s)
}

// evalContext is what conditions are evaluated against: one dispute with its derived
// SLA fields and, when it could be loaded, its transaction.
type evalContext struct {
	view domain.DisputeView
	tx   *domain.Transaction
}

func (c *evalContext) txValue(f func(tx *domain.Transaction) value) value {
	if c.tx == nil {
		return value{}
	}
	return f(c.tx)
}

// field is a typed accessor into evalContext.
type field struct {
	kind kind
	get  func(c *evalContext) value
}

var schema = map[string]field{
	"dispute.id":                    {kind: kindString, get: func(c *evalContext) value { return str(c.view.ID) }},
	"dispute.status":                {kind: kindString, get: func(c *evalContext) value { return str(string(c.view.Status)) }},
	"dispute.priority":              {kind: kindString, get: func(c *evalContext) value { return str(string(c.view.Priority)) }},
	"dispute.disputeType":           {kind: kindString, get: func(c *evalContext) value { return str(c.view.DisputeType) }},
	"dispute.assignedAdminId":       {kind: kindString, get: func(c *evalContext) value { return optional(c.view.AssignedAdminID) }},
	"dispute.isAssigned":            {kind: kindBool, get: func(c *evalContext) value { return boolean(c.view.AssignedAdminID != nil) }},
	"dispute.raiserId":              {kind: kindString, get: func(c *evalContext) value { return str(c.view.RaiserID) }},
	"dispute.accusedId":             {kind: kindString, get: func(c *evalContext) value { return str(c.view.AccusedID) }},
	"dispute.slaStatus":             {kind: kindString, get: func(c *evalContext) value { return str(string(c.view.SLAStatus)) }},
	"dispute.elapsedHours":          {kind: kindNumber, get: func(c *evalContext) value { return num(c.view.ElapsedHours) }},
	"dispute.timeToResolutionHours": {kind: kindNumber, get: func(c *evalContext) value { return num(c.view.TimeToResolutionHours) }},
	"dispute.hoursSinceUpdate":      {kind: kindNumber, get: func(c *evalContext) value { return num(c.view.HoursSinceUpdate) }},
	"dispute.autoResolveDue":        {kind: kindBool, get: func(c *evalContext) value { return boolean(c.view.AutoResolveDue) }},
	"dispute.hasResolution":         {kind: kindBool, get: func(c *evalContext) value { return boolean(c.view.Resolution != nil) }},
	"dispute.resolutionAccepted":    {kind: kindBool, get: func(c *evalContext) value { return boolean(c.view.ResolutionAccepted()) }},

	"transaction.status": {kind: kindString, get: func(c *evalContext) value {
		return c.txValue(func(tx *domain.Transaction) value { return str(string(tx.Status)) })
	}},
	"transaction.total": {kind: kindNumber, get: func(c *evalContext) value {
		return c.txValue(func(tx *domain.Transaction) value { return num(tx.Total.InexactFloat64()) })
	}},
	"transaction.price": {kind: kindNumber, get: func(c *evalContext) value {
		return c.txValue(func(tx *domain.Transaction) value { return num(tx.Price.InexactFloat64()) })
	}},
	"transaction.fee": {kind: kindNumber, get: func(c *evalContext) value {
		return c.txValue(func(tx *domain.Transaction) value { return num(tx.Fee.InexactFloat64()) })
	}},
	"transaction.currency": {kind: kindString, get: func(c *evalContext) value {
		return c.txValue(func(tx *domain.Transaction) value { return str(tx.Currency) })
	}},
	"transaction.useCourier": {kind: kindBool, get: func(c *evalContext) value {
		return c.txValue(func(tx *domain.Transaction) value { return boolean(tx.UseCourier) })
	}},
	"transaction.creatorId": {kind: kindString, get: func(c *evalContext) value {
		return c.txValue(func(tx *domain.Transaction) value { return str(tx.CreatorID) })
	}},
	"transaction.counterpartyId": {kind: kindString, get: func(c *evalContext) value {
		return c.txValue(func(tx *domain.Transaction) value { return optional(tx.CounterpartyID) })
	}},
}

// lookupField resolves a field path; bare names mean the dispute field of that name.
func lookupField(path string) (field, string, bool) {
	path = strings.TrimSpace(path)
	if f, ok := schema[path]; ok {
		return f, path, true
	}
	if !strings.Contains(path, ".") {
		qualified := "dispute." + path
		if f, ok := schema[qualified]; ok {
			return f, qualified, true
		}
	}
	return field{}, path, false
}
