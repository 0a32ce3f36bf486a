package cryptox

import (
	"fmt"
	"strings"
	"unicode"
)

// Policy holds the configurable strength predicates a secret must satisfy
// before it is ever hashed.
type Policy struct {
	MinLength     int
	MaxLength     int // must not exceed MaxSecretLength
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPolicy mirrors the platform's registration rules.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:    8,
		MaxLength:    128,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// StrengthError enumerates every violated predicate so the caller can render
// one combined message instead of drip-feeding failures.
type StrengthError struct {
	Reasons []string
}

func (e *StrengthError) Error() string {
	return "cryptox: weak secret: " + strings.Join(e.Reasons, "; ")
}

// Validate checks secret against every predicate and reports all violations
// together. A nil return means the secret may be hashed.
func (p Policy) Validate(secret string) error {
	maxLen := p.MaxLength
	if maxLen <= 0 || maxLen > MaxSecretLength {
		maxLen = MaxSecretLength
	}

	var reasons []string

	if len(secret) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}
	if len(secret) > maxLen {
		reasons = append(reasons, fmt.Sprintf("must be at most %d characters", maxLen))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range secret {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if p.RequireUpper && !hasUpper {
		reasons = append(reasons, "must contain an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		reasons = append(reasons, "must contain a lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		reasons = append(reasons, "must contain a digit")
	}
	if p.RequireSymbol && !hasSymbol {
		reasons = append(reasons, "must contain a symbol")
	}

	if len(reasons) > 0 {
		return &StrengthError{Reasons: reasons}
	}
	return nil
}
