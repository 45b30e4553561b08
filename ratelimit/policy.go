package ratelimit

import (
	"fmt"
	"time"
)

// Policy is a request budget per window
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	// PolicyAuth guards login and registration
	PolicyAuth = Policy{Name: "auth", Limit: 5, Window: time.Minute}
	// PolicySearch guards lead searches
	PolicySearch = Policy{Name: "search", Limit: 10, Window: time.Minute}
	// PolicyExport guards lead exports
	PolicyExport = Policy{Name: "export", Limit: 3, Window: time.Minute}
	// PolicyGeneral is the default for everything else
	PolicyGeneral = Policy{Name: "general", Limit: 60, Window: time.Minute}
)

var builtin = map[string]Policy{
	PolicyAuth.Name:    PolicyAuth,
	PolicySearch.Name:  PolicySearch,
	PolicyExport.Name:  PolicyExport,
	PolicyGeneral.Name: PolicyGeneral,
}

// PolicyByName returns one of the built in policies
func PolicyByName(name string) (Policy, bool) {
	p, ok := builtin[name]
	return p, ok
}

// Validate rejects policies that can never admit a request
func (p Policy) Validate() error {
	if p.Name == "" {
		return p.invalid("policy name is required")
	}
	if p.Limit <= 0 {
		return p.invalid("policy limit must be positive")
	}
	if p.Window <= 0 {
		return p.invalid("policy window must be positive")
	}
	return nil
}

func (p Policy) invalid(reason string) error {
	err := ErrInvalidPolicy.Clone()
	err.Message = reason
	return err.WithMetadata(map[string]any{
		"policy": p.Name,
		"limit":  p.Limit,
		"window": p.Window.String(),
	})
}

// String renders the policy as "5/1m0s"
func (p Policy) String() string {
	return fmt.Sprintf("%d/%s", p.Limit, p.Window)
}
