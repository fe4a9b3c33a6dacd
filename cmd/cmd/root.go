package cmd

import (
	"github.com/spf13/cobra"
)

const AppName = "carvex"

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - signature-based file carving tool",
	}

	rootCmd.AddCommand(DefineScanCommand())
	rootCmd.AddCommand(DefineFormatsCommand())
	rootCmd.AddCommand(DefineMergeCommand())
	rootCmd.AddCommand(DefineProgressCommand())

	return rootCmd.Execute()
}
