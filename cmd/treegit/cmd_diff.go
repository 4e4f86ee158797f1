package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmalmi/treegit/pkg/gitobj"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <from-commit> <to-commit>",
		Short: "List paths changed between two commits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := gitobj.ParseObjectID(args[0])
			if err != nil {
				return err
			}
			to, err := gitobj.ParseObjectID(args[1])
			if err != nil {
				return err
			}

			repo, _, _ := openRepo(cmd)
			entries, err := repo.Diff(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%-8s  %s\n", e.Status, e.Path)
			}
			return nil
		},
	}
}
