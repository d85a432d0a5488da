package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/spf13/cobra"

	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/cryptoutil"
	"github.com/timrodz/blog/internal/xerrors"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type parameterPutter interface {
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

type signer interface {
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

type publishClients struct {
	S3  objectPutter
	SSM parameterPutter
	KMS signer
}

type publishFlags struct {
	bucket     string
	prefix     string
	ssmParam   string
	signKeyARN string
	dryRun     bool
}

func (a *app) publishCmd() *cobra.Command {
	var f publishFlags
	cmd := &cobra.Command{
		Use:   "publish <bundle.tar.gz>",
		Short: "Upload a bundle to S3 and point the SSM parameter at it",
		Long: `Uploads the bundle as {prefix}/{sha256}.tar.gz, optionally signs it with a
KMS key ({sha256}.tar.gz.sig), and then writes the hash to the SSM parameter
the servers poll. The parameter is written last so a server never sees a
hash whose object is missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPublish(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "s3 bucket (required)")
	cmd.Flags().StringVar(&f.prefix, "prefix", "content/bundles", "s3 key prefix")
	cmd.Flags().StringVar(&f.ssmParam, "ssm-param", "", "ssm parameter holding the active hash (required)")
	cmd.Flags().StringVar(&f.signKeyARN, "sign-key-arn", "", "KMS key (ECC_NIST_P256) to sign the bundle with")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "validate and print what would be written")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("ssm-param")
	return cmd
}

func (a *app) runPublish(ctx context.Context, bundlePath string, f publishFlags) error {
	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return err
	}
	// the same checks the server runs after download
	tree, err := content.ExtractBundle(data)
	if err != nil {
		return xerrors.Wrap(err, "bundle is not loadable")
	}
	snap, err := content.BuildSnapshot(tree, content.Meta{}, content.BuildOptions{Location: a.location()})
	if err != nil {
		return err
	}
	if err := content.ValidateSnapshot(snap, content.DefaultValidationOptions()); err != nil {
		return err
	}

	hash := cryptoutil.SHA256Hex(data)
	key := content.BundleKey(f.prefix, hash)
	L := a.logger.With("bucket", f.bucket, "key", key, "sha256", hash)

	if f.dryRun {
		fmt.Fprintf(a.out, "would upload s3://%s/%s\n", f.bucket, key)
		if f.signKeyARN != "" {
			fmt.Fprintf(a.out, "would upload s3://%s/%s.sig\n", f.bucket, key)
		}
		fmt.Fprintf(a.out, "would set %s = %s\n", f.ssmParam, hash)
		return nil
	}

	c, err := a.clients(ctx)
	if err != nil {
		return xerrors.Wrap(err, "aws clients")
	}

	if err := putObject(ctx, c.S3, f.bucket, key, "application/gzip", data); err != nil {
		return err
	}
	L.Info(ctx, "uploaded bundle", "bytes", len(data))

	if f.signKeyARN != "" {
		sig, err := signBundle(ctx, c.KMS, f.signKeyARN, data)
		if err != nil {
			return err
		}
		if err := putObject(ctx, c.S3, f.bucket, key+".sig", "application/octet-stream", sig); err != nil {
			return err
		}
		L.Info(ctx, "uploaded signature", "key_arn", f.signKeyARN)
	}

	_, err = c.SSM.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(f.ssmParam),
		Value:     aws.String(hash),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return xerrors.Wrapf(err, "put ssm parameter %s", f.ssmParam)
	}
	L.Info(ctx, "published content", "ssm_param", f.ssmParam)
	fmt.Fprintln(a.out, hash)
	return nil
}

func putObject(ctx context.Context, c objectPutter, bucket, key, contentType string, data []byte) error {
	_, err := c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return xerrors.Wrapf(err, "put s3://%s/%s", bucket, key)
	}
	return nil
}

// signBundle has KMS sign the SHA-256 digest, which is what the server
// verifies for P-256 keys.
func signBundle(ctx context.Context, c signer, keyARN string, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	out, err := c.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(keyARN),
		Message:          digest[:],
		MessageType:      kmstypes.MessageTypeDigest,
		SigningAlgorithm: kmstypes.SigningAlgorithmSpecEcdsaSha256,
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "kms sign")
	}
	return out.Signature, nil
}
