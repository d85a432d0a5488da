package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/timrodz/blog/internal/content"
)

func (a *app) listCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list <content-root>",
		Short: "Print posts or projects newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != content.PostsDir && kind != content.ProjectsDir {
				return fmt.Errorf("--kind must be %s or %s", content.PostsDir, content.ProjectsDir)
			}
			snap, err := content.BuildSnapshot(os.DirFS(args[0]), content.Meta{}, content.BuildOptions{Location: a.location()})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			if kind == content.PostsDir {
				fmt.Fprintln(tw, "SLUG\tDATE\tTITLE")
				for _, p := range snap.Posts {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Slug, p.PublishedAt.Format("2006-01-02"), p.Title)
				}
			} else {
				fmt.Fprintln(tw, "SLUG\tDATE\tTYPE\tTITLE")
				for _, p := range snap.Projects {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Slug, p.PublishedAt.Format("2006-01-02"), p.Type, p.Title)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", content.PostsDir, "posts|projects")
	return cmd
}
