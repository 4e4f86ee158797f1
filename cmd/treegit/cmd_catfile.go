package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmalmi/treegit/pkg/gitobj"
)

func newCatFileCmd() *cobra.Command {
	var showType bool

	cmd := &cobra.Command{
		Use:   "cat-file <oid>",
		Short: "Print an object's content (or type with -t)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := gitobj.ParseObjectID(args[0])
			if err != nil {
				return err
			}

			repo, _, _ := openRepo(cmd)
			obj, err := repo.ReadObject(cmd.Context(), oid)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showType {
				fmt.Fprintln(out, obj.Type)
				return nil
			}
			_, err = out.Write(obj.Content)
			return err
		},
	}

	cmd.Flags().BoolVarP(&showType, "type", "t", false, "show object type instead of content")
	return cmd
}
