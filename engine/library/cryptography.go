package library

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/nbd-wtf/go-nostr"
)

func Sha256Sum(data interface{}) Sha256 {
	var b []byte
	switch d := data.(type) {
	case string:
		b = []byte(d)
	case []byte:
		b = d
	default:
		LogCLI("attempted to hash non-string or non-[]byte", 1)
	}
	h := sha256.New()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// DerivePublicKey returns the hex-encoded compressed secp256k1 public key
// for a hex-encoded private key.
func DerivePublicKey(privateKey string) (Account, error) {
	keyBytes, err := hex.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("could not decode private key from hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return "", fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}
	priv, _ := btcec.PrivKeyFromBytes(keyBytes)
	return hex.EncodeToString(priv.PubKey().SerializeCompressed()), nil
}

// VerifyKeyPair reports whether the private key derives the expected account.
// Use this to fail fast before attempting to sign with a misconfigured identity.
func VerifyKeyPair(privateKey string, expected Account) bool {
	derived, err := DerivePublicKey(privateKey)
	if err != nil {
		LogCLI(fmt.Sprintf("key pair verification failed: %s", err), 2)
		return false
	}
	return derived == expected
}

// SignEvent computes the canonical id of the event, signs it with
// deterministic ECDSA (RFC 6979) over secp256k1, and populates ID and Sig.
// The signature is the canonical 64-byte r||s form, hex encoded. The signed
// event is verified against the event's own pubkey before returning; an
// event that fails self-verification is left unsigned and an error is
// returned.
func SignEvent(event *nostr.Event, privateKey string) error {
	serialized := event.Serialize()
	hash := sha256.Sum256(serialized)
	event.ID = hex.EncodeToString(hash[:])
	sig, err := signHash(hash[:], privateKey)
	if err != nil {
		event.ID = ""
		return err
	}
	event.Sig = sig
	if !VerifyEventSignature(*event) {
		event.ID = ""
		event.Sig = ""
		return fmt.Errorf("signed event %d by %s failed self-verification", event.Kind, event.PubKey)
	}
	return nil
}

func signHash(hash []byte, privateKey string) (string, error) {
	keyBytes, err := hex.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("could not decode private key from hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return "", fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}
	priv, _ := btcec.PrivKeyFromBytes(keyBytes)
	compact, err := ecdsa.SignCompact(priv, hash, true)
	if err != nil {
		return "", fmt.Errorf("could not sign event hash: %w", err)
	}
	// drop the recovery byte, leaving the canonical r||s form
	return hex.EncodeToString(compact[1:]), nil
}

// VerifyEventSignature recomputes the event's canonical hash and checks both
// the id and the signature, so mutating any signed field invalidates the
// event.
func VerifyEventSignature(event nostr.Event) bool {
	serialized := event.Serialize()
	hash := sha256.Sum256(serialized)
	if hex.EncodeToString(hash[:]) != event.ID {
		return false
	}
	sigBytes, err := hex.DecodeString(event.Sig)
	if err != nil || len(sigBytes) != 64 {
		return false
	}
	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sigBytes[:32]); overflow {
		return false
	}
	if overflow := s.SetByteSlice(sigBytes[32:]); overflow {
		return false
	}
	pubBytes, err := hex.DecodeString(event.PubKey)
	if err != nil {
		return false
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	return ecdsa.NewSignature(&r, &s).Verify(hash[:], pub)
}
