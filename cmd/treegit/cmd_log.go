package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmalmi/treegit/pkg/gitrepo"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var depth int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show commit history",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, _ := openRepo(cmd)
			commits, err := repo.Log(cmd.Context(), gitrepo.LogOptions{Depth: depth})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range commits {
				if oneline {
					fmt.Fprintf(out, "%s %s\n", c.OID[:8], firstLine(c.Message))
					continue
				}
				fmt.Fprintf(out, "commit %s\n", c.OID)
				fmt.Fprintf(out, "Author: %s <%s>\n", c.Author, c.Email)
				fmt.Fprintf(out, "Date:   %s\n\n", time.Unix(c.Timestamp, 0).UTC().Format(time.RFC1123))
				fmt.Fprintf(out, "    %s\n\n", c.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	cmd.Flags().IntVarP(&depth, "max-count", "n", gitrepo.DefaultLogDepth, "limit number of commits")
	return cmd
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
