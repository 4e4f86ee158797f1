package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	var configPath string
	var name, email string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or set the author identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := loadIdentity(configPath)
			if err != nil {
				return err
			}

			if name == "" && email == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", identity.Name, identity.Email)
				return nil
			}

			if name != "" {
				identity.Name = name
			}
			if email != "" {
				identity.Email = email
			}
			return saveIdentity(configPath, identity)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "identity config file (JSON)")
	cmd.Flags().StringVar(&name, "name", "", "author name")
	cmd.Flags().StringVar(&email, "email", "", "author email")
	return cmd
}
