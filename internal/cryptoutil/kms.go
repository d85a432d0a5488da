package cryptoutil

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/timrodz/blog/internal/xerrors"
)

// Verifier checks a detached signature over message.
type Verifier interface {
	VerifySignature(ctx context.Context, message, signature []byte) error
}

// KeyFetcher is the slice of the KMS API the verifier needs.
type KeyFetcher interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
}

// KMSVerifier verifies locally with a public key fetched from KMS on first use.
type KMSVerifier struct {
	client KeyFetcher
	keyID  string

	mu  sync.Mutex
	pub crypto.PublicKey
}

func NewKMSVerifier(client KeyFetcher, keyID string) *KMSVerifier {
	return &KMSVerifier{client: client, keyID: keyID}
}

// PublicKey returns the cached key, fetching it from KMS the first time.
// A failed fetch is not cached.
func (v *KMSVerifier) PublicKey(ctx context.Context) (crypto.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pub != nil {
		return v.pub, nil
	}
	if v.client == nil {
		return nil, xerrors.New("kms client is not configured")
	}

	out, err := v.client.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(v.keyID)})
	if err != nil {
		return nil, xerrors.Wrapf(err, "kms get public key %s", v.keyID)
	}
	if out.KeyUsage != kmstypes.KeyUsageTypeSignVerify {
		return nil, xerrors.Newf("kms key %s has KeyUsage=%s, expected SIGN_VERIFY", v.keyID, out.KeyUsage)
	}
	pub, err := x509.ParsePKIXPublicKey(out.PublicKey)
	if err != nil {
		return nil, xerrors.Wrap(err, "parse kms public key")
	}
	v.pub = pub
	return pub, nil
}

func (v *KMSVerifier) VerifySignature(ctx context.Context, message, signature []byte) error {
	pub, err := v.PublicKey(ctx)
	if err != nil {
		return err
	}
	return verifyWith(pub, message, signature)
}

// KeyVerifier verifies with a fixed public key.
type KeyVerifier struct {
	pub crypto.PublicKey
}

// ParsePEMVerifier builds a KeyVerifier from a PEM "PUBLIC KEY" block.
func ParsePEMVerifier(data []byte) (*KeyVerifier, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, xerrors.New("no PEM block found in public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, xerrors.Wrap(err, "parse public key")
	}
	return &KeyVerifier{pub: pub}, nil
}

func NewKeyVerifier(pub crypto.PublicKey) *KeyVerifier { return &KeyVerifier{pub: pub} }

func (v *KeyVerifier) VerifySignature(_ context.Context, message, signature []byte) error {
	return verifyWith(v.pub, message, signature)
}

func verifyWith(pub crypto.PublicKey, message, signature []byte) error {
	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		digest, err := ecdsaDigest(key, message)
		if err != nil {
			return err
		}
		if !ecdsa.VerifyASN1(key, digest, signature) {
			return xerrors.Newf("ecdsa signature verification failed (curve %s)", key.Curve.Params().Name)
		}
		return nil
	case *rsa.PublicKey:
		digest := sha256.Sum256(message)
		if err := rsa.VerifyPSS(key, crypto.SHA256, digest[:], signature, nil); err != nil {
			return xerrors.Wrap(err, "rsa-pss signature verification failed")
		}
		return nil
	default:
		return xerrors.Newf("unsupported public key type %T", pub)
	}
}

// ecdsaDigest hashes with SHA-256 for P-256 and SHA-384 for P-384, matching
// the ECDSA_SHA_256 and ECDSA_SHA_384 KMS signing specs.
func ecdsaDigest(key *ecdsa.PublicKey, message []byte) ([]byte, error) {
	switch key.Curve {
	case elliptic.P256():
		d := sha256.Sum256(message)
		return d[:], nil
	case elliptic.P384():
		d := sha512.Sum384(message)
		return d[:], nil
	default:
		return nil, xerrors.Newf("unsupported ecdsa curve %s", key.Curve.Params().Name)
	}
}
