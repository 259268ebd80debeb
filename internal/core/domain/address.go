package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address is an identity handle: a 20-byte account address in its
// EIP-55 checksummed hex form ("0x" + 40 hex digits).
//
// Values produced by ParseAddress are canonical, so two Addresses
// naming the same account compare equal with ==.
type Address string

// ZeroAddress is the all-zero account. It never owns or issues claims.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates s and returns its canonical checksummed form.
//
// All-lowercase and all-uppercase hex are accepted as is. Mixed-case input
// must carry a correct EIP-55 checksum, matching how the client tooling
// normalizes addresses before submitting them.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", ErrInvalidOwner.WithDetails("not a 20-byte hex address: " + quoteShort(s))
	}

	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return "", ErrInvalidOwner.WithDetails("zero address")
	}

	canonical := addr.Hex()
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if isMixedCase(body) && body != canonical[2:] {
		return "", ErrInvalidOwner.WithDetails("bad address checksum: " + s)
	}

	return Address(canonical), nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Intended for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the checksummed form.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether a is empty or the zero account.
func (a Address) IsZero() bool {
	return a == "" || strings.EqualFold(string(a), string(ZeroAddress))
}

// Valid reports whether a is a canonical, non-zero address.
func (a Address) Valid() bool {
	parsed, err := ParseAddress(string(a))
	return err == nil && parsed == a
}

// Short returns an abbreviated form for tables and logs (0x1234…abcd).
func (a Address) Short() string {
	s := string(a)
	if len(s) < 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}

func quoteShort(s string) string {
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return "\"" + s + "\""
}
