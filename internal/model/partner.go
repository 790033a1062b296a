package model

import "strings"

// Partner is a known counterparty with the mail domains it sends from.
type Partner struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty"`
}

// HasDomain reports whether domain is one of the partner's known domains.
func (p *Partner) HasDomain(domain string) bool {
	if p == nil || domain == "" {
		return false
	}
	domain = strings.ToLower(domain)
	for _, d := range p.Domains {
		if strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.") == domain {
			return true
		}
	}
	return false
}
