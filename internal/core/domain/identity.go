package domain

import "strings"

// Identity is the account address of a caller. Hex addresses are compared
// case-insensitively, so they are stored lower-cased.
type Identity string

func NewIdentity(s string) Identity {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return Identity(strings.ToLower(s))
	}
	return Identity(s)
}

func (i Identity) String() string { return string(i) }

func (i Identity) IsZero() bool { return i == "" }

// Short renders an address as 0x1234...abcd.
func (i Identity) Short() string {
	s := string(i)
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}
