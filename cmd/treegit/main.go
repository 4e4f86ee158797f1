package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "treegit",
		Short: "Git plumbing for repositories stored in a content-addressed tree",
	}

	root.PersistentFlags().StringP("root", "C", ".", "repository tree root directory")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newBranchesCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newCatFileCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("treegit 0.1.0-dev")
		},
	}
}
