package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/timrodz/blog/internal/content"
)

func (a *app) lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <content-root>",
		Short: "Check every post, project and site.yaml, reporting all problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problems, posts, projects := lintTree(os.DirFS(args[0]), a.location())
			for _, p := range problems {
				fmt.Fprintf(a.out, "FAIL %v\n", p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) in %s", len(problems), args[0])
			}
			fmt.Fprintf(a.out, "ok: %d posts, %d projects\n", posts, projects)
			return nil
		},
	}
}

// lintTree parses every file on its own so one bad file does not hide the
// next. BuildSnapshot stops at the first.
func lintTree(fsys fs.FS, loc *time.Location) (problems []error, posts, projects int) {
	if _, err := content.LoadSite(fsys); err != nil {
		problems = append(problems, err)
	}
	posts, errs := lintDir(fsys, content.PostsDir, func(e content.Entry) error {
		_, err := content.PostFromEntry(e, loc)
		return err
	})
	problems = append(problems, errs...)
	projects, errs = lintDir(fsys, content.ProjectsDir, func(e content.Entry) error {
		_, err := content.ProjectFromEntry(e, loc)
		return err
	})
	problems = append(problems, errs...)
	return problems, posts, projects
}

func lintDir(fsys fs.FS, dir string, check func(content.Entry) error) (int, []error) {
	names, err := content.ListFiles(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, []error{err}
	}
	var errs []error
	ok := 0
	for _, name := range names {
		e, err := content.ReadEntry(fsys, path.Join(dir, name))
		if err == nil {
			err = check(e)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ok++
	}
	return ok, errs
}
