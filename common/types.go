package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

const (
	// AddressLength is the expected length of a validator address in bytes.
	AddressLength = 32
	// HashLength is the expected length of a block hash in bytes.
	HashLength = 32
)

// Bytes is an alias of []byte.
type Bytes []byte

func (b Bytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// Address represents the identity of a validator, i.e. its public key.
type Address [AddressLength]byte

// BytesToAddress converts a byte slice to an Address. Inputs longer than
// AddressLength are truncated from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a hex string (with or without the 0x prefix) into an Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// Hex returns the hex string representation of the address.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// IsEmpty returns whether the address is all zeros.
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Hash represents the hash of a block.
type Hash [HashLength]byte

// BytesToHash converts a byte slice to a Hash. Inputs longer than
// HashLength are truncated from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a hex string (with or without the 0x prefix) into a Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// IsEmpty returns whether the hash is all zeros.
func (h Hash) IsEmpty() bool {
	return h == Hash{}
}

// Cmp compares two hashes byte-wise, returning -1, 0 or 1.
func (h Hash) Cmp(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// CopyBytes returns an exact copy of the provided bytes.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	ret := make([]byte, len(b))
	copy(ret, b)
	return ret
}

func fromHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("Invalid hex string: %v", err))
	}
	return b
}
