package cmd

import (
	"fmt"
	"runtime"

	"github.com/smarkets/smkstream/version"
	"github.com/spf13/cobra"
)

type versionCMD struct {
	short bool
}

func newVersionCMD() *versionCMD {
	return &versionCMD{}
}

func (v *versionCMD) CMD() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run:   v.run,
	}
	cmd.Flags().BoolVarP(&v.short, "short", "s", false, "print only the version number")
	return cmd
}

func (v *versionCMD) run(cmd *cobra.Command, args []string) {
	if v.short {
		fmt.Println(version.Version)
		return
	}
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Commit:     %s\n", version.Commit)
	fmt.Printf("CommitDate: %s\n", version.CommitDate)
	fmt.Printf("TreeState:  %s\n", version.TreeState)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
