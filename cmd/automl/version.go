package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// -ldflags "-X main.Version=... -X main.GitCommit=..." で上書きする
var (
	Version   = "unknown-version"
	GitCommit = "unknown-commit"
)

func buildInfo() string {
	var info string
	info += fmt.Sprintln("Version:\t", Version)
	info += fmt.Sprintln("Go version:\t", runtime.Version())
	info += fmt.Sprintln("Git commit:\t", GitCommit)
	info += fmt.Sprintf("OS/Arch:\t %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return info
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), buildInfo())
			return err
		},
	}
}
