package main

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/cryptoutil"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func goodTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"site.yaml":          "title: Test Blog\n",
		"posts/first.mdx":    "---\ntitle: First\npublishedAt: 2024-01-01\nsummary: one\n---\nbody",
		"posts/second.mdx":   "---\ntitle: Second\npublishedAt: 2024-03-01\nsummary: two\n---\nbody",
		"projects/tool.mdx":  "---\ntitle: Tool\npublishedAt: 2023-05-01\ntype: CLI\n---\n",
		"public/favicon.ico": "icon",
	})
}

func run(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a.out, a.errOut = &out, &errOut
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func testApp() *app {
	a := newApp(io.Discard, io.Discard)
	a.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	a.clients = func(context.Context) (publishClients, error) {
		return publishClients{}, errors.New("no aws in tests")
	}
	return a
}

func TestLint_OK(t *testing.T) {
	out, _, err := run(t, testApp(), "lint", goodTree(t))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if !strings.Contains(out, "ok: 2 posts, 1 projects") {
		t.Fatalf("out = %q", out)
	}
}

func TestLint_ReportsEveryProblem(t *testing.T) {
	root := writeTree(t, map[string]string{
		"posts/good.mdx":   "---\ntitle: Good\npublishedAt: 2024-01-01\nsummary: s\n---\n",
		"posts/nodate.mdx": "---\ntitle: No date\nsummary: s\n---\n",
		"posts/nohead.mdx": "just text",
		"projects/bad.mdx": "---\ntitle: Bad\npublishedAt: not-a-date\n---\n",
	})
	out, _, err := run(t, testApp(), "lint", root)
	if err == nil {
		t.Fatal("lint passed on broken content")
	}
	if n := strings.Count(out, "FAIL "); n != 3 {
		t.Fatalf("FAIL lines = %d, want 3\n%s", n, out)
	}
	for _, name := range []string{"nodate.mdx", "nohead.mdx", "bad.mdx"} {
		if !strings.Contains(out, name) {
			t.Errorf("output does not mention %s:\n%s", name, out)
		}
	}
}

func TestLint_BadTimezone(t *testing.T) {
	if _, _, err := run(t, testApp(), "--timezone", "Mars/Olympus", "lint", goodTree(t)); err == nil {
		t.Fatal("invalid timezone accepted")
	}
}

func TestList(t *testing.T) {
	root := goodTree(t)
	out, _, err := run(t, testApp(), "list", root)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "SLUG") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "second") || !strings.Contains(lines[1], "2024-03-01") {
		t.Fatalf("newest post should be first:\n%s", out)
	}

	out, _, err = run(t, testApp(), "list", root, "--kind", "projects")
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if !strings.Contains(out, "TYPE") || !strings.Contains(out, "CLI") {
		t.Fatalf("projects output:\n%s", out)
	}

	if _, _, err := run(t, testApp(), "list", root, "--kind", "drafts"); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func bundle(t *testing.T, root string, extra ...string) (string, string) {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "content.tar.gz")
	args := append([]string{"bundle", root, "-o", dst}, extra...)
	out, _, err := run(t, testApp(), args...)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	return dst, out
}

func TestBundle(t *testing.T) {
	dst, out := bundle(t, goodTree(t), "--version", "v42", "--commit", "0123456789abcdef", "--branch", "main")

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	sum := cryptoutil.SHA256Hex(data)
	if out != sum+"  "+dst+"\n" {
		t.Fatalf("stdout = %q, want sha256sum line for %s", out, sum)
	}

	tree, err := content.ExtractBundle(data)
	if err != nil {
		t.Fatalf("ExtractBundle: %v", err)
	}
	if _, err := fs.Stat(tree, "public/favicon.ico"); err != nil {
		t.Fatalf("public file missing from bundle: %v", err)
	}
	snap, err := content.BuildSnapshot(tree, content.Meta{}, content.BuildOptions{Location: time.UTC})
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if err := content.ValidateSnapshot(snap, content.DefaultValidationOptions()); err != nil {
		t.Fatalf("bundle would be refused by the server: %v", err)
	}
	prov := snap.Provenance
	if prov.Version != "v42" || prov.Source.CommitShort != "0123456" || prov.Source.Branch != "main" {
		t.Fatalf("provenance = %+v", prov)
	}
	if prov.Summary.Posts != 2 || prov.Summary.Projects != 1 {
		t.Fatalf("summary = %+v", prov.Summary)
	}
	if _, ok := prov.Tooling["contentctl"]; !ok {
		t.Fatal("tooling should record contentctl")
	}
	if h, _, _ := content.HashFS(tree); h != prov.ContentHash {
		t.Fatalf("content hash %s does not match manifest %s", h, prov.ContentHash)
	}
}

func TestBundle_Deterministic(t *testing.T) {
	root := goodTree(t)
	a, _ := bundle(t, root, "--version", "v1")
	b, _ := bundle(t, root, "--version", "v1")
	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	if !bytes.Equal(da, db) {
		t.Fatal("bundling the same tree twice gave different bytes")
	}
}

func TestBundle_RefusesBrokenContent(t *testing.T) {
	root := writeTree(t, map[string]string{"posts/bad.mdx": "no header"})
	dst := filepath.Join(t.TempDir(), "out.tar.gz")
	if _, _, err := run(t, testApp(), "bundle", root, "-o", dst); err == nil {
		t.Fatal("broken content bundled")
	}
	if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("output written for broken content")
	}
}

type recorder struct {
	calls   []string
	objects map[string][]byte
	param   string
	key     *ecdsa.PrivateKey
	signErr error
}

func (r *recorder) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	r.calls = append(r.calls, "s3:"+key)
	r.objects[key] = data
	return &s3.PutObjectOutput{}, nil
}

func (r *recorder) PutParameter(_ context.Context, in *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	r.calls = append(r.calls, "ssm:"+aws.ToString(in.Name))
	r.param = aws.ToString(in.Value)
	return &ssm.PutParameterOutput{}, nil
}

func (r *recorder) Sign(_ context.Context, in *kms.SignInput, _ ...func(*kms.Options)) (*kms.SignOutput, error) {
	if r.signErr != nil {
		return nil, r.signErr
	}
	r.calls = append(r.calls, "kms:sign")
	sig, err := ecdsa.SignASN1(rand.Reader, r.key, in.Message)
	if err != nil {
		return nil, err
	}
	return &kms.SignOutput{Signature: sig}, nil
}

func publishApp(t *testing.T) (*app, *recorder) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	r := &recorder{objects: map[string][]byte{}, key: priv}
	a := testApp()
	a.clients = func(context.Context) (publishClients, error) {
		return publishClients{S3: r, SSM: r, KMS: r}, nil
	}
	return a, r
}

func TestPublish(t *testing.T) {
	dst, _ := bundle(t, goodTree(t), "--version", "v1")
	data, _ := os.ReadFile(dst)
	hash := cryptoutil.SHA256Hex(data)

	a, r := publishApp(t)
	out, _, err := run(t, a, "publish", dst,
		"--bucket", "blog-content", "--ssm-param", "/blog/content/current",
		"--sign-key-arn", "arn:aws:kms:us-east-1:111122223333:key/test")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if strings.TrimSpace(out) != hash {
		t.Fatalf("stdout = %q", out)
	}

	key := "content/bundles/" + hash + ".tar.gz"
	want := []string{"s3:" + key, "kms:sign", "s3:" + key + ".sig", "ssm:/blog/content/current"}
	if strings.Join(r.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", r.calls, want)
	}
	if r.param != hash {
		t.Fatalf("ssm value = %q", r.param)
	}
	if !bytes.Equal(r.objects[key], data) {
		t.Fatal("uploaded bundle differs from file")
	}

	v := cryptoutil.NewKeyVerifier(&r.key.PublicKey)
	if err := v.VerifySignature(context.Background(), data, r.objects[key+".sig"]); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}
}

func TestPublish_SignFailureLeavesParameter(t *testing.T) {
	dst, _ := bundle(t, goodTree(t))
	a, r := publishApp(t)
	r.signErr = errors.New("AccessDenied")

	_, _, err := run(t, a, "publish", dst, "--bucket", "b", "--ssm-param", "/p", "--sign-key-arn", "k")
	if err == nil {
		t.Fatal("publish succeeded without a signature")
	}
	for _, c := range r.calls {
		if strings.HasPrefix(c, "ssm:") {
			t.Fatal("parameter written after a failed sign")
		}
	}
}

func TestPublish_DryRun(t *testing.T) {
	dst, _ := bundle(t, goodTree(t))
	a, r := publishApp(t)
	out, _, err := run(t, a, "publish", dst, "--bucket", "b", "--ssm-param", "/p", "--dry-run")
	if err != nil {
		t.Fatalf("publish --dry-run: %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("dry run made calls: %v", r.calls)
	}
	if !strings.Contains(out, "would set /p") {
		t.Fatalf("out = %q", out)
	}
}

func TestPublish_RejectsInvalidBundle(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.tar.gz")
	if err := os.WriteFile(bad, []byte("not a bundle"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, r := publishApp(t)
	if _, _, err := run(t, a, "publish", bad, "--bucket", "b", "--ssm-param", "/p"); err == nil {
		t.Fatal("invalid bundle published")
	}
	if len(r.calls) != 0 {
		t.Fatalf("calls = %v", r.calls)
	}
}

func TestPublish_RequiredFlags(t *testing.T) {
	dst, _ := bundle(t, goodTree(t))
	if _, _, err := run(t, testApp(), "publish", dst, "--bucket", "b"); err == nil {
		t.Fatal("missing --ssm-param accepted")
	}
}
