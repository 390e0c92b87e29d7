package license

import (
	"strings"
	"time"

	"churnvision-controlplane/services/tenant"
)

// ValidationResult is the answer given to a product instance asking whether
// its license is good. Revoked licenses produce a populated result with
// Valid=false rather than an error: revocation is a fact about the license,
// not a fault in the request, and the caller must be able to render why it
// was rejected without a second lookup.
type ValidationResult struct {
	Valid bool `json:"valid"`

	LicenseTier  string     `json:"license_tier"`
	CompanyName  string     `json:"company_name"`
	MaxEmployees *int       `json:"max_employees"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Features     []string   `json:"features"`

	Revoked          bool       `json:"revoked"`
	RevocationReason *string    `json:"revocation_reason"`
	RevokedAt        *time.Time `json:"revoked_at"`

	LicenseID       string     `json:"license_id,omitempty"`
	TenantID        string     `json:"tenant_id,omitempty"`
	TenantSlug      string     `json:"tenant_slug,omitempty"`
	IssuedAt        *time.Time `json:"issued_at,omitempty"`
	DaysUntilExpiry *int       `json:"days_until_expiry,omitempty"`
}

// Fallbacks when the owning tenant row no longer resolves. The result still
// has to render a tier and a company name for the caller.
const (
	fallbackTier        = "starter"
	fallbackCompanyName = "Unknown"
	fallbackRevokeNote  = "License has been revoked"
)

// tierLabel maps the tenant's commercial tier to the short form product
// instances key feature gates on. Unrecognized tiers pass through lowercased
// so a newly added tier degrades gracefully on older readers.
func tierLabel(t tenant.Tier) string {
	switch t {
	case tenant.TierStarter:
		return "starter"
	case tenant.TierProfessional:
		return "pro"
	case tenant.TierEnterprise:
		return "enterprise"
	case "":
		return fallbackTier
	default:
		return strings.ToLower(string(t))
	}
}

func successResult(lic *License, owner *tenant.Tenant, now time.Time) *ValidationResult {
	days := int(lic.ExpiresAt.Sub(now).Hours() / 24)

	expiresAt := lic.ExpiresAt
	issuedAt := lic.IssuedAt
	res := &ValidationResult{
		Valid:           true,
		LicenseTier:     fallbackTier,
		CompanyName:     fallbackCompanyName,
		MaxEmployees:    lic.MaxEmployees,
		ExpiresAt:       &expiresAt,
		Features:        lic.Features,
		LicenseID:       lic.ID,
		TenantID:        lic.TenantID,
		IssuedAt:        &issuedAt,
		DaysUntilExpiry: &days,
	}
	if owner != nil {
		res.LicenseTier = tierLabel(owner.Tier)
		res.CompanyName = owner.Name
		res.TenantSlug = owner.Slug
	}
	return res
}

func revokedResult(lic *License, owner *tenant.Tenant) *ValidationResult {
	expiresAt := lic.ExpiresAt
	reason := lic.RevocationReason
	if reason == nil {
		note := fallbackRevokeNote
		reason = &note
	}
	res := &ValidationResult{
		Valid:            false,
		Revoked:          true,
		LicenseTier:      fallbackTier,
		CompanyName:      fallbackCompanyName,
		RevocationReason: reason,
		RevokedAt:        lic.RevokedAt,
		MaxEmployees:     lic.MaxEmployees,
		ExpiresAt:        &expiresAt,
		Features:         lic.Features,
		LicenseID:        lic.ID,
		TenantID:         lic.TenantID,
	}
	if owner != nil {
		res.LicenseTier = tierLabel(owner.Tier)
		res.CompanyName = owner.Name
		res.TenantSlug = owner.Slug
	}
	return res
}
