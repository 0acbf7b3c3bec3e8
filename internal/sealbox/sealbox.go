// Package sealbox encrypts values for GitHub's secrets API.
//
// GitHub expects secret values sealed with libsodium's crypto_box_seal
// against the repository public key. nacl/box.SealAnonymous produces the
// same construction: an ephemeral sender key pair, no sender authentication,
// decryptable only with the recipient's private key.
package sealbox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
)

const publicKeySize = 32

// EncryptionError reports a value that could not be sealed.
type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encrypt secret: %s: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// Seal encrypts plaintext for the holder of the private key matching the
// base64 encoded publicKey and returns the base64 encoded ciphertext.
// Output differs on every call.
func Seal(publicKey string, plaintext string) (string, error) {
	return seal(rand.Reader, publicKey, plaintext)
}

func seal(random io.Reader, publicKey string, plaintext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return "", &EncryptionError{Op: "decode public key", Err: err}
	}
	if len(raw) != publicKeySize {
		return "", &EncryptionError{Op: "decode public key", Err: fmt.Errorf("unexpected key length %d (want %d)", len(raw), publicKeySize)}
	}

	var recipient [publicKeySize]byte
	copy(recipient[:], raw)

	sealed, err := box.SealAnonymous(nil, []byte(plaintext), &recipient, random)
	if err != nil {
		return "", &EncryptionError{Op: "seal", Err: err}
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}
