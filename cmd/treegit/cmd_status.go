package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmalmi/treegit/pkg/bridge"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show staged, unstaged and untracked files",
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := loadIdentity(configPath)
			if err != nil {
				return err
			}
			runtime := bridge.New(identity)
			defer runtime.Close()

			_, reader, ref := openRepo(cmd)
			status, err := runtime.Status(cmd.Context(), reader, ref)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !status.HasChanges {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
				return nil
			}
			for _, e := range status.Staged {
				fmt.Fprintf(out, "%s %s\n", e.Status, renderPath(e))
			}
			for _, e := range status.Unstaged {
				fmt.Fprintf(out, "%s %s\n", e.Status, renderPath(e))
			}
			for _, e := range status.Untracked {
				fmt.Fprintf(out, "?? %s\n", e.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "identity config file (JSON)")
	return cmd
}

func renderPath(e bridge.StatusEntry) string {
	if e.OrigPath != "" {
		return e.OrigPath + " -> " + e.Path
	}
	return e.Path
}
