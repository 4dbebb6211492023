package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/ed25519"

	"github.com/tesserachain/tessera/common"
)

// SignatureLength is the length of an ed25519 signature in bytes.
const SignatureLength = ed25519.SignatureSize

//
// ------- PublicKey ------- //
//

// PublicKey wraps an ed25519 public key. A validator's address is its
// public key, so the two convert losslessly into each other.
type PublicKey struct {
	pubKey ed25519.PublicKey
}

// Address returns the validator address derived from the public key.
func (pk PublicKey) Address() common.Address {
	return common.BytesToAddress(pk.pubKey)
}

// ToBytes returns the raw public key bytes.
func (pk PublicKey) ToBytes() common.Bytes {
	ret := make(common.Bytes, len(pk.pubKey))
	copy(ret, pk.pubKey)
	return ret
}

// IsEmpty returns whether the public key is unset.
func (pk PublicKey) IsEmpty() bool {
	return len(pk.pubKey) == 0
}

// VerifySignature verifies msg against the signature with this public key.
func (pk PublicKey) VerifySignature(msg common.Bytes, sig common.Bytes) bool {
	if len(sig) != SignatureLength {
		return false
	}
	return ed25519.Verify(pk.pubKey, msg, sig)
}

//
// ------- PrivateKey ------- //
//

// PrivateKey wraps an ed25519 private key.
type PrivateKey struct {
	privKey ed25519.PrivateKey
}

// PublicKey returns the public half of the key pair.
func (sk PrivateKey) PublicKey() PublicKey {
	return PublicKey{pubKey: sk.privKey.Public().(ed25519.PublicKey)}
}

// Sign signs the given message.
func (sk PrivateKey) Sign(msg common.Bytes) common.Bytes {
	return ed25519.Sign(sk.privKey, msg)
}

// GenerateKeyPair generates a random private/public key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PrivateKey{}, PublicKey{}, err
	}
	return PrivateKey{privKey: priv}, PublicKey{pubKey: pub}, nil
}

// VerifyBytes verifies msg against the signature, treating the address as a
// raw ed25519 public key.
func VerifyBytes(addr common.Address, msg common.Bytes, sig common.Bytes) bool {
	if len(sig) != SignatureLength {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(addr.Bytes()), msg, sig)
}
