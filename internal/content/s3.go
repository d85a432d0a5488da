package content

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/timrodz/blog/internal/cryptoutil"
	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/xerrors"
)

// SSMAPI is the slice of the SSM client the bundle loader uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// S3API is the slice of the S3 client the bundle loader uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type BundleLoaderOptions struct {
	Logger log.Logger

	// SSMParam holds the SHA-256 of the bundle to serve.
	SSMParam string

	// Bundles live at s3://{S3Bucket}/{S3Prefix}/{hash}.tar.gz with an
	// optional detached signature at {hash}.tar.gz.sig.
	S3Bucket string
	S3Prefix string

	S3  S3API
	SSM SSMAPI

	// Verifier, when set, makes the signature mandatory.
	Verifier cryptoutil.Verifier

	Location *time.Location
}

// BundleLoader fetches content bundles published by contentctl.
type BundleLoader struct {
	opts   BundleLoaderOptions
	logger log.Logger
}

func NewBundleLoader(opts BundleLoaderOptions) (*BundleLoader, error) {
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.S3Bucket == "" {
		return nil, xerrors.New("S3Bucket is required")
	}
	if opts.S3 == nil || opts.SSM == nil {
		return nil, xerrors.New("S3 and SSM clients are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &BundleLoader{opts: opts, logger: opts.Logger}, nil
}

// FetchCurrentHash reads the published bundle hash from SSM. A "sha256:"
// prefix is accepted.
func (l *BundleLoader) FetchCurrentHash(ctx context.Context) (string, error) {
	out, err := l.opts.SSM.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(l.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", l.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", l.opts.SSMParam)
	}
	hash, err := normalizeHash(*out.Parameter.Value)
	if err != nil {
		return "", xerrors.Wrapf(err, "SSM parameter %s", l.opts.SSMParam)
	}
	return hash, nil
}

func normalizeHash(v string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(v))
	h = strings.TrimPrefix(h, "sha256:")
	if len(h) != 64 {
		return "", xerrors.Newf("bundle hash %q is not a sha256 hex digest", v)
	}
	if _, err := hex.DecodeString(h); err != nil {
		return "", xerrors.Newf("bundle hash %q is not a sha256 hex digest", v)
	}
	return h, nil
}

// BundleKey is the object key for a bundle hash under prefix.
func BundleKey(prefix, hash string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return hash + ".tar.gz"
	}
	return prefix + "/" + hash + ".tar.gz"
}

func (l *BundleLoader) get(ctx context.Context, key string, limit int64) ([]byte, string, error) {
	out, err := l.opts.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "get s3://%s/%s", l.opts.S3Bucket, key)
	}
	defer out.Body.Close()
	return readWithHash(out.Body, limit)
}

// Load fetches whatever bundle SSM currently points at.
func (l *BundleLoader) Load(ctx context.Context) (*Snapshot, error) {
	hash, err := l.FetchCurrentHash(ctx)
	if err != nil {
		return nil, err
	}
	return l.LoadHash(ctx, hash)
}

// LoadHash downloads, verifies and parses the bundle for hash.
func (l *BundleLoader) LoadHash(ctx context.Context, hash string) (*Snapshot, error) {
	key := BundleKey(l.opts.S3Prefix, hash)
	l.logger.Info(ctx, "downloading content bundle", "bucket", l.opts.S3Bucket, "key", key)

	data, actual, err := l.get(ctx, key, maxBundleSize)
	if err != nil {
		return nil, err
	}
	if !cryptoutil.HashEqual(actual, hash) {
		return nil, xerrors.Newf("checksum mismatch: expected %s, got %s", hash, actual)
	}

	signed := false
	if l.opts.Verifier != nil {
		sig, _, err := l.get(ctx, key+".sig", 64<<10)
		if err != nil {
			return nil, xerrors.Wrap(err, "fetch bundle signature")
		}
		if err := l.opts.Verifier.VerifySignature(ctx, data, sig); err != nil {
			return nil, xerrors.Wrapf(err, "verify bundle %s", truncHash(hash))
		}
		signed = true
	}

	fsys, err := ExtractBundle(data)
	if err != nil {
		return nil, xerrors.Wrap(err, "extract bundle")
	}

	snap, err := BuildSnapshot(fsys, Meta{
		SHA256:     hash,
		Source:     SourceS3,
		VerifiedAt: time.Now().UTC(),
		Signed:     signed,
	}, BuildOptions{Location: l.opts.Location})
	if err != nil {
		return nil, err
	}
	if snap.Provenance != nil {
		snap.Meta.Version = snap.Provenance.Version
	}

	l.logger.Info(ctx, "loaded content bundle",
		"hash", truncHash(hash),
		"bytes", len(data),
		"signed", signed,
		"version", snap.Meta.Version,
		"posts", len(snap.Posts),
		"projects", len(snap.Projects),
	)
	return snap, nil
}
