package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainPolicyAllows(t *testing.T) {
	policy := NewDomainPolicy("JKKN.ac.in")

	tests := []struct {
		name   string
		email  string
		hosted string
		want   bool
	}{
		{"matching email", "student@jkkn.ac.in", "", true},
		{"matching email mixed case", "Student@JKKN.AC.IN", "", true},
		{"foreign domain", "student@gmail.com", "", false},
		{"lookalike suffix", "student@notjkkn.ac.in", "", false},
		{"subdomain is not the domain", "student@mail.jkkn.ac.in", "", false},
		{"empty email", "", "", false},
		{"hosted domain match overrides email", "student@gmail.com", "jkkn.ac.in", true},
		{"hosted domain mismatch falls back to email", "student@jkkn.ac.in", "other.edu", true},
		{"hosted domain mismatch and foreign email", "student@gmail.com", "other.edu", false},
		{"hosted domain case insensitive", "student@gmail.com", "JKKN.AC.IN", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Allows(tt.email, tt.hosted))
		})
	}
}
