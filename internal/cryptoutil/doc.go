// Package cryptoutil holds the hashing and signature checks used when
// content bundles are fetched from remote storage.
//
// Bundle signatures are detached ASN.1 ECDSA or RSA-PSS signatures over the
// raw bundle bytes. The public key comes either from AWS KMS (fetched once
// and cached) or from a PEM file.
package cryptoutil
