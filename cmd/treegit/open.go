package main

import (
	"github.com/spf13/cobra"

	"github.com/mmalmi/treegit/pkg/gitrepo"
	"github.com/mmalmi/treegit/pkg/hashtree"
)

// openRepo builds a read-only repo view over the --root directory.
func openRepo(cmd *cobra.Command) (*gitrepo.Repo, *hashtree.DirReader, hashtree.Ref) {
	rootDir, _ := cmd.Flags().GetString("root")
	reader := hashtree.NewDirReader(rootDir)
	ref := reader.Root(nil)
	return gitrepo.Open(reader, ref), reader, ref
}
