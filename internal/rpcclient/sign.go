package rpcclient

import (
	"encoding/base64"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// recoveryOffset is the Bitcoin compact-signature convention constant
// (27 base + 4 for a compressed pubkey) used to convert between the
// library's leading recovery byte and the wire's trailing recovery_id.
const recoveryOffset = 31

// Sign computes the canonical serialization of req, hashes it with
// SHA3-256, signs the digest with the identity's private key, and inserts
// the base64 R||S||recovery_id signature into req.Params. It fails
// invalid_request when the identity has no key or the method is not a
// transaction method.
func Sign(req *Request) (*Request, error) {
	if !IsTransactionMethod(req.Method) {
		return nil, errInvalidRequest(fmt.Sprintf("rpcclient: Sign is only valid for transaction methods, got %q", req.Method))
	}
	priv := req.Options.Identity.PrivateKey()
	if priv == nil {
		return nil, errInvalidRequest("rpcclient: Sign requires an identity with a private key")
	}

	canonical, err := Serialize(req)
	if err != nil {
		return nil, err
	}
	digest := sha3.Sum256([]byte(canonical))

	compact := ecdsa.SignCompact(priv, digest[:], true)
	sig, err := wireSignature(compact)
	if err != nil {
		return nil, err
	}

	signed := make(map[string]any, len(req.Params)+1)
	for k, v := range req.Params {
		signed[k] = v
	}
	signed["signature"] = sig

	out := *req
	out.Params = signed
	return &out, nil
}

// Verify recomputes the canonical digest for req and checks that its
// "signature" param recovers a public key matching the identity's.
func Verify(req *Request) (bool, error) {
	sigAny, ok := req.Params["signature"]
	if !ok {
		return false, nil
	}
	sigStr, ok := sigAny.(string)
	if !ok {
		return false, nil
	}

	unsigned := *req
	params := make(map[string]any, len(req.Params))
	for k, v := range req.Params {
		if k == "signature" {
			continue
		}
		params[k] = v
	}
	unsigned.Params = params

	canonical, err := Serialize(&unsigned)
	if err != nil {
		return false, err
	}
	digest := sha3.Sum256([]byte(canonical))

	raw, err := base64.StdEncoding.DecodeString(sigStr)
	if err != nil || len(raw) != 65 {
		return false, nil
	}
	recoveryID := raw[64]
	compact := make([]byte, 65)
	compact[0] = recoveryID + recoveryOffset
	copy(compact[1:33], raw[0:32])
	copy(compact[33:65], raw[32:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return false, nil
	}

	expected := req.Options.Identity.PrivateKey()
	if expected == nil {
		return false, nil
	}
	return pub.IsEqual(expected.PubKey()), nil
}

func wireSignature(compact []byte) (string, error) {
	if len(compact) != 65 {
		return "", fmt.Errorf("rpcclient: unexpected compact signature length %d", len(compact))
	}
	v := compact[0]
	if v < recoveryOffset {
		return "", fmt.Errorf("rpcclient: unexpected recovery byte %d", v)
	}
	recoveryID := v - recoveryOffset

	out := make([]byte, 65)
	copy(out[0:32], compact[1:33])
	copy(out[32:64], compact[33:65])
	out[64] = recoveryID
	return base64.StdEncoding.EncodeToString(out), nil
}
