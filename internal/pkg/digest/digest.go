// Package digest implements the pipe-joined RSA digest scheme used by
// card payment gateways: a fixed field order is serialized, signed with the
// merchant key and verified with the gateway key.
package digest

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
)

// DigestField is the parameter carrying the base64 signature.
const DigestField = "DIGEST"

const separator = "|"

// Params is a set of named gateway parameters.
type Params map[string]string

// Clone returns a shallow copy of params.
func (p Params) Clone() Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// FieldOrder lists the parameters covered by a digest, in signing order.
type FieldOrder []string

var (
	// GPWebpayRequestOrder covers an outgoing CREATE_ORDER request.
	GPWebpayRequestOrder = FieldOrder{
		"MERCHANTNUMBER", "OPERATION", "ORDERNUMBER", "AMOUNT",
		"CURRENCY", "DEPOSITFLAG", "MERORDERNUM", "URL",
	}
	// GPWebpayResponseOrder covers the result delivered back to the merchant.
	GPWebpayResponseOrder = FieldOrder{
		"OPERATION", "ORDERNUMBER", "MERORDERNUM", "MD",
		"PRCODE", "SRCODE", "RESULTTEXT",
	}
)

// Message serializes params in field order. Missing fields become empty
// strings so that positions never shift.
func (o FieldOrder) Message(params Params) (string, error) {
	values := make([]string, len(o))
	for i, field := range o {
		v := params[field]
		if strings.ContainsAny(v, separator+"\r\n") {
			return "", fmt.Errorf("%w: field %s contains a reserved character", domainErrors.ErrSigning, field)
		}
		values[i] = v
	}
	return strings.Join(values, separator), nil
}

// ParseHash maps a configuration value to a hash function.
func ParseHash(name string) (crypto.Hash, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "sha1":
		return crypto.SHA1, nil
	case "sha256":
		return crypto.SHA256, nil
	case "sha512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("unsupported digest hash %q", name)
	}
}

// Signer produces signed parameter sets.
type Signer struct {
	keys  PrivateKeySource
	order FieldOrder
	hash  crypto.Hash
}

// NewSigner constructs Signer for the given field order.
func NewSigner(keys PrivateKeySource, order FieldOrder, hash crypto.Hash) *Signer {
	return &Signer{keys: keys, order: order, hash: hash}
}

// Sign returns a copy of params with DigestField set. Fields outside the
// field order are passed through unsigned.
func (s *Signer) Sign(params Params) (Params, error) {
	msg, err := s.order.Message(params)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.PrivateKey()
	if err != nil {
		return nil, keyLoadError(err)
	}

	hashed, err := sum(s.hash, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrSigning, err)
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, s.hash, hashed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrSigning, err)
	}

	signed := params.Clone()
	signed[DigestField] = base64.StdEncoding.EncodeToString(sig)
	return signed, nil
}

// Verifier validates digests attached to gateway responses.
type Verifier struct {
	keys  PublicKeySource
	order FieldOrder
	hash  crypto.Hash
}

// NewVerifier constructs Verifier for the given field order.
func NewVerifier(keys PublicKeySource, order FieldOrder, hash crypto.Hash) *Verifier {
	return &Verifier{keys: keys, order: order, hash: hash}
}

// Verify returns nil only when DigestField is a valid signature over params.
func (v *Verifier) Verify(params Params) error {
	key, err := v.keys.PublicKey()
	if err != nil {
		return keyLoadError(err)
	}

	encoded := params[DigestField]
	if encoded == "" {
		return fmt.Errorf("%w: digest missing", domainErrors.ErrInvalidSignature)
	}
	sig, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: digest is not base64", domainErrors.ErrInvalidSignature)
	}

	msg, err := v.order.Message(params)
	if err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	}
	hashed, err := sum(v.hash, msg)
	if err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	}
	if err := rsa.VerifyPKCS1v15(key, v.hash, hashed, sig); err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	}
	return nil
}

func sum(hash crypto.Hash, msg string) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("hash %v is not available", hash)
	}
	h := hash.New()
	h.Write([]byte(msg))
	return h.Sum(nil), nil
}
