package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/imasahiro/peg/pkg/generator"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of peg",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			generateVersionOutput(cmd.OutOrStdout())
		},
	}
}

func generateVersionOutput(out io.Writer) {
	fmt.Fprintln(out, "Version: "+generator.Version)
	fmt.Fprintln(out, "Go Version: "+runtime.Version())
}
