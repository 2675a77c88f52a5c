// Package models holds the decentralized identity records: per-identity
// ownership, block-bounded delegates, and named attributes.
package models

import (
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
)

// NameMaxLength bounds delegate type names and attribute names.
const NameMaxLength = 64

// DelegateTypeAttributes is the delegate purpose that authorizes
// attribute writes on behalf of the identity owner.
const DelegateTypeAttributes = "attributes"

// DelegateRecord grants an account authority of a given type over an
// identity until a block height. ExpiresAt of zero means no expiry.
type DelegateRecord struct {
	Identity  domain.AccountID   `json:"identity"`
	Type      string             `json:"type"`
	Delegate  domain.AccountID   `json:"delegate"`
	ExpiresAt domain.BlockNumber `json:"expires_at,omitempty"`
}

// Active reports whether the grant is live at the given block height.
// Expiry is exclusive: a delegate with ExpiresAt == block is expired.
func (d *DelegateRecord) Active(block domain.BlockNumber) bool {
	return d.ExpiresAt == 0 || d.ExpiresAt > block
}

func NewDelegate(identity domain.AccountID, dtype string, delegate domain.AccountID, expiresAt domain.BlockNumber) (*DelegateRecord, error) {
	if err := checkName(dtype, "delegate type"); err != nil {
		return nil, err
	}
	if delegate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "delegate account is required")
	}
	return &DelegateRecord{
		Identity:  identity,
		Type:      dtype,
		Delegate:  delegate,
		ExpiresAt: expiresAt,
	}, nil
}

// AttributeRecord is a named value attached to an identity. ValidUntil of
// zero means the attribute does not expire.
type AttributeRecord struct {
	Identity   domain.AccountID   `json:"identity"`
	Name       string             `json:"name"`
	Value      []byte             `json:"value"`
	ValidUntil domain.BlockNumber `json:"valid_until,omitempty"`
}

// Active reports whether the attribute is live at the given block height.
func (a *AttributeRecord) Active(block domain.BlockNumber) bool {
	return a.ValidUntil == 0 || a.ValidUntil > block
}

func NewAttribute(identity domain.AccountID, name string, value []byte, validUntil domain.BlockNumber) (*AttributeRecord, error) {
	if err := checkName(name, "attribute name"); err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attribute value is required")
	}
	return &AttributeRecord{
		Identity:   identity,
		Name:       name,
		Value:      value,
		ValidUntil: validUntil,
	}, nil
}

func (a *AttributeRecord) Clone() *AttributeRecord {
	out := *a
	out.Value = append([]byte(nil), a.Value...)
	return &out
}

func checkName(name, what string) error {
	if name == "" {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	if len(name) > NameMaxLength {
		return dErrors.Newf(dErrors.CodeTooLong, "%s too long", what)
	}
	return nil
}
