package auth

import "strings"

// DomainPolicy restricts sign-in to a single email domain.
type DomainPolicy struct {
	Domain string
}

func NewDomainPolicy(domain string) DomainPolicy {
	return DomainPolicy{Domain: strings.ToLower(strings.TrimSpace(domain))}
}

// Allows reports whether the account may sign in. The provider-asserted
// hosted-domain claim wins when present because Google verifies it; the
// suffix check covers flows without that claim (email codes).
func (p DomainPolicy) Allows(email, hostedDomain string) bool {
	if hostedDomain != "" && strings.EqualFold(hostedDomain, p.Domain) {
		return true
	}
	if email != "" && strings.HasSuffix(strings.ToLower(email), "@"+p.Domain) {
		return true
	}
	return false
}
