// Package domain defines the typed identifiers and units shared across the
// registry. Keeping them as distinct types lets the compiler catch mixups
// between organization ids, certificate type ids, and account references,
// and between the two clocks the ledger runs on.
package domain

import (
	"strconv"
	"strings"
	"time"

	dErrors "credreg/pkg/domain-errors"
)

// AccountID is an opaque ledger account address. The registry never
// interprets it; it only compares and stores it.
type AccountID string

// ParseAccountID validates an account reference at a trust boundary.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id cannot be empty")
	}
	if len(s) > 128 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id too long")
	}
	return AccountID(s), nil
}

func (a AccountID) IsZero() bool { return a == "" }

func (a AccountID) String() string { return string(a) }

// OrgID is an allocator-assigned organization identifier.
type OrgID uint32

func ParseOrgID(s string) (OrgID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid organization id")
	}
	return OrgID(v), nil
}

func (id OrgID) String() string { return strconv.FormatUint(uint64(id), 10) }

// CertTypeID is an allocator-assigned certificate type identifier.
type CertTypeID uint64

func ParseCertTypeID(s string) (CertTypeID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid certificate type id")
	}
	return CertTypeID(v), nil
}

func (id CertTypeID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Moment is ledger wall-clock time in milliseconds. It is supplied by the
// host chain, never read from the OS inside registry logic.
type Moment int64

func MomentFromTime(t time.Time) Moment { return Moment(t.UnixMilli()) }

func (m Moment) Time() time.Time { return time.UnixMilli(int64(m)) }

func (m Moment) IsZero() bool { return m == 0 }

// BlockNumber is the ledger block height. Distinct from Moment: DID expiry
// runs on block height, credential expiry on ledger time.
type BlockNumber uint64

// ContentRef is an opaque pointer to off-registry attachment content,
// typically a content-addressed hash. The registry stores and returns it
// without resolving it.
type ContentRef string

func (c ContentRef) IsZero() bool { return c == "" }

// CredentialKey is the composite key of an issued credential. At most one
// record ever exists per key across the registry's entire history.
type CredentialKey struct {
	CertTypeID CertTypeID
	Owner      AccountID
}

func (k CredentialKey) String() string {
	return k.CertTypeID.String() + "/" + string(k.Owner)
}
