package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories reminders can be limited to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := collectionPath(); err != nil {
			return err
		}
		for _, name := range categoryChoices(cmd.Context()) {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
