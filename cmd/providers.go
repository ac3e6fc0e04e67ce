package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the available OCR providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range newRegistry().List() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(providersCmd)
}
