package models

import (
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
)

const (
	NameMinLength = 3
	NameMaxLength = 100
)

// CertificateType is a credential template scoped to an issuing
// organization. Immutable after creation so historical credential records
// stay semantically stable.
//
// Invariants:
//   - Name is unique within the owning organization
//   - OrgID references an existing, non-suspended organization at creation
type CertificateType struct {
	ID        domain.CertTypeID `json:"id"`
	Name      string            `json:"name"`
	OrgID     domain.OrgID      `json:"org_id"`
	CreatedAt domain.Moment     `json:"created_at"`
}

// NewCertificateType validates name bounds; the store allocates the ID.
func NewCertificateType(name string, orgID domain.OrgID, now domain.Moment) (*CertificateType, error) {
	if len(name) < NameMinLength {
		return nil, dErrors.New(dErrors.CodeTooShort, "certificate type name too short")
	}
	if len(name) > NameMaxLength {
		return nil, dErrors.New(dErrors.CodeTooLong, "certificate type name too long")
	}
	return &CertificateType{
		Name:      name,
		OrgID:     orgID,
		CreatedAt: now,
	}, nil
}

func (t *CertificateType) Clone() *CertificateType {
	out := *t
	return &out
}
