package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Template file utilities",
	}
	cmd.AddCommand(newTemplateValidateCmd())
	return cmd
}

func newTemplateValidateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a template file the way the API checks it on save",
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := readTemplate(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%s, %d fields)\n", tpl.Name, tpl.Purpose, len(tpl.Schema))
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "template YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
