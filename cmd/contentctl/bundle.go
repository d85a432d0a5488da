package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"testing/fstest"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/cryptoutil"
	"github.com/timrodz/blog/internal/version"
)

type bundleFlags struct {
	out     string
	version string
	source  content.ProvenanceSource
}

func (a *app) bundleCmd() *cobra.Command {
	var f bundleFlags
	cmd := &cobra.Command{
		Use:   "bundle <content-root>",
		Short: "Write a deterministic .tar.gz of the content tree with a provenance manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBundle(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output path (required)")
	cmd.Flags().StringVar(&f.version, "version", "", "content version, default is a UTC timestamp")
	cmd.Flags().StringVar(&f.source.Repository, "repo", "", "source repository")
	cmd.Flags().StringVar(&f.source.Commit, "commit", "", "source commit")
	cmd.Flags().StringVar(&f.source.Branch, "branch", "", "source branch")
	cmd.Flags().BoolVar(&f.source.Dirty, "dirty", false, "working tree had uncommitted changes")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) runBundle(ctx context.Context, root string, f bundleFlags) error {
	src := os.DirFS(root)

	// never package content the server would refuse
	if problems, _, _ := lintTree(src, a.location()); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(a.errOut, "FAIL %v\n", p)
		}
		return fmt.Errorf("%d problem(s) in %s, not bundling", len(problems), root)
	}

	now := a.now().UTC()
	ver := f.version
	if ver == "" {
		ver = now.Format("20060102.150405")
	}
	prov, err := content.BuildProvenance(src, ver, f.source, now)
	if err != nil {
		return err
	}
	prov.Tooling = map[string]string{"contentctl": version.Get().Version}

	tree, err := withProvenance(src, prov)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := content.WriteBundle(&buf, tree); err != nil {
		return err
	}
	if err := os.WriteFile(f.out, buf.Bytes(), 0o644); err != nil {
		return err
	}

	sum := cryptoutil.SHA256Hex(buf.Bytes())
	p := message.NewPrinter(language.English)
	a.logger.Info(ctx, "bundle written", "path", f.out, "sha256", sum, "version", ver)
	p.Fprintf(a.errOut, "%s: %d files, %d bytes of content, %d posts, %d projects\n",
		f.out, prov.Summary.TotalFiles, prov.Summary.TotalSize, prov.Summary.Posts, prov.Summary.Projects)
	// sha256sum format, so the output can be piped into publish scripts
	fmt.Fprintf(a.out, "%s  %s\n", sum, f.out)
	return nil
}

// withProvenance copies fsys into memory and adds the manifest.
func withProvenance(fsys fs.FS, prov *content.Provenance) (fs.FS, error) {
	manifest, err := json.MarshalIndent(prov, "", "  ")
	if err != nil {
		return nil, err
	}
	out := fstest.MapFS{}
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == "." {
			return err
		}
		if d.IsDir() {
			out[p] = &fstest.MapFile{Mode: fs.ModeDir | 0o755}
			return nil
		}
		if !d.Type().IsRegular() || p == content.ProvenanceFilePath {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		out[p] = &fstest.MapFile{Data: data, Mode: 0o644, ModTime: time.Unix(0, 0)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out[content.ProvenanceFilePath] = &fstest.MapFile{Data: manifest, Mode: 0o644}
	return out, nil
}
