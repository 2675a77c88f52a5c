package models

import (
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
)

const (
	NameMinLength = 3
	NameMaxLength = 100
)

// Organization is the aggregate root for an issuing organization.
//
// Invariants:
//   - Name length within [NameMinLength, NameMaxLength]
//   - ID is allocator-assigned and unique; organizations are never deleted
//   - Admin is a weak reference to an account, not ownership
//   - Suspended organizations cannot define or issue certificates
type Organization struct {
	ID        domain.OrgID     `json:"id"`
	Name      string           `json:"name"`
	Admin     domain.AccountID `json:"admin"`
	Suspended bool             `json:"suspended"`
	CreatedAt domain.Moment    `json:"created_at"`
	Delegates []AccessDelegate `json:"delegates,omitempty"`
}

// AccessDelegate grants an account block-height-bounded access to act for
// the organization (issuing credentials). It never conveys admin rights.
type AccessDelegate struct {
	Account    domain.AccountID   `json:"account"`
	ValidUntil domain.BlockNumber `json:"valid_until"`
}

// NewOrganization validates invariants and constructs an organization with
// no ID; the store allocates one at insert.
func NewOrganization(name string, admin domain.AccountID, now domain.Moment) (*Organization, error) {
	if len(name) < NameMinLength {
		return nil, dErrors.New(dErrors.CodeTooShort, "organization name too short")
	}
	if len(name) > NameMaxLength {
		return nil, dErrors.New(dErrors.CodeTooLong, "organization name too long")
	}
	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization admin is required")
	}
	return &Organization{
		Name:      name,
		Admin:     admin,
		Suspended: false,
		CreatedAt: now,
	}, nil
}

func (o *Organization) IsAdmin(caller domain.AccountID) bool {
	return caller == o.Admin
}

// HasAccess reports whether caller may act for the organization at the
// given block height: the admin always can, a delegate only while
// unexpired. A delegate with ValidUntil <= block is treated as absent even
// though the row may still exist.
func (o *Organization) HasAccess(caller domain.AccountID, block domain.BlockNumber) bool {
	if o.IsAdmin(caller) {
		return true
	}
	for _, d := range o.Delegates {
		if d.Account == caller && d.ValidUntil > block {
			return true
		}
	}
	return false
}

// CanSuspend checks the suspend transition.
func (o *Organization) CanSuspend() error {
	if o.Suspended {
		return dErrors.New(dErrors.CodeInvalidState, "organization is already suspended")
	}
	return nil
}

func (o *Organization) ApplySuspend() { o.Suspended = true }

// CanUnsuspend checks the unsuspend transition.
func (o *Organization) CanUnsuspend() error {
	if !o.Suspended {
		return dErrors.New(dErrors.CodeInvalidState, "organization is not suspended")
	}
	return nil
}

func (o *Organization) ApplyUnsuspend() { o.Suspended = false }

// GrantDelegate upserts a delegate's expiry.
func (o *Organization) GrantDelegate(account domain.AccountID, validUntil domain.BlockNumber) {
	for i := range o.Delegates {
		if o.Delegates[i].Account == account {
			o.Delegates[i].ValidUntil = validUntil
			return
		}
	}
	o.Delegates = append(o.Delegates, AccessDelegate{Account: account, ValidUntil: validUntil})
}

// Clone returns a deep copy so stores never leak shared mutable state.
func (o *Organization) Clone() *Organization {
	out := *o
	out.Delegates = append([]AccessDelegate(nil), o.Delegates...)
	return &out
}
