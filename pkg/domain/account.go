package domain

import (
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "pharmledger/pkg/domain-errors"
)

// Account is an externally-authenticated, public-key-derived address. The
// ledger never creates accounts; callers supply one on every operation.
//
// Invariant: "0x" followed by exactly 40 hex characters. Stored lowercased so
// equality checks are checksum-agnostic.
type Account string

// ParseAccount validates and normalizes an account address.
func ParseAccount(s string) (Account, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", dErrors.New(dErrors.CodeValidation, "account address must start with 0x")
	}
	hex := s[2:]
	if len(hex) != 40 || !govalidator.IsHexadecimal(hex) {
		return "", dErrors.New(dErrors.CodeValidation, "account address must be 0x followed by 40 hex characters")
	}
	return Account("0x" + strings.ToLower(hex)), nil
}

func (a Account) String() string { return string(a) }

// IsZero reports whether the account is unset.
func (a Account) IsZero() bool { return a == "" }
