// Command expertctl seeds experts into the booking store and watches an
// expert's availability live over the event stream.
package main

import (
	"fmt"
	"os"

	"github.com/md-rashed-zaman/expertbook/libs/runtime"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "expertctl",
	Short:         "Operate the expert booking service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := runtime.SignalContext()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
