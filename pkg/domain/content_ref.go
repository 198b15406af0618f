package domain

import (
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "pharmledger/pkg/domain-errors"
)

// ContentRef is a content-derived identifier (CID) for an off-chain document.
// The ledger stores and compares refs but never dereferences them; resolution
// to a fetchable URL belongs to the blob-store collaborator.
//
// Accepted forms:
//   - CIDv0: "Qm" followed by 44 base58 characters (46 total)
//   - CIDv1: "b"-prefixed lowercase base32, e.g. "bafy…"
type ContentRef string

const cidV0Length = 46

// base58 alphabet excludes 0, O, I and l.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ParseContentRef validates a CID string.
func ParseContentRef(s string) (ContentRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "content reference is required")
	}
	switch {
	case strings.HasPrefix(s, "Qm"):
		if len(s) != cidV0Length || !isBase58(s) {
			return "", dErrors.New(dErrors.CodeValidation, "malformed CIDv0 content reference")
		}
	case strings.HasPrefix(s, "b"):
		if !govalidator.StringLength(s, "8", "128") || s != strings.ToLower(s) {
			return "", dErrors.New(dErrors.CodeValidation, "malformed CIDv1 content reference")
		}
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unrecognized content reference format")
	}
	return ContentRef(s), nil
}

func (c ContentRef) String() string { return string(c) }

// IsZero reports whether the ref is unset.
func (c ContentRef) IsZero() bool { return c == "" }

func isBase58(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}
