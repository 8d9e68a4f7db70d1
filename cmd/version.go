package cmd

import (
	"fmt"
	"runtime"

	"github.com/snowflakedb/gosnowflake"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display sfds version information",
	Long:  `Display the current version of sfds along with build and driver information.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sfds version %s\n", Version)
		fmt.Fprintf(out, "Built at: %s\n", BuildTime)
		fmt.Fprintf(out, "Snowflake driver: %s\n", gosnowflake.SnowflakeGoDriverVersion)
		fmt.Fprintf(out, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
