package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Long: `Print the client version, the Go toolchain it was built with and the
platform API it talks to.`,
	Args: cobra.NoArgs,
	Run:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) {
	if versionShort {
		cmd.Println(version)
		return
	}

	cmd.Printf("runit version %s\n", version)
	cmd.Printf("  go:  %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if settingsService != nil {
		cmd.Printf("  api: %s\n", settingsService.Get().APIURL)
	}
}
