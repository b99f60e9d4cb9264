package cmd

import (
	"github.com/spf13/cobra"

	"fmcw/config"
)

var rootCmd = &cobra.Command{
	Use:   "fmcw",
	Short: "Host-side acquisition driver for an FMCW radar on a USB FIFO bridge",
	Long: "The fmcw tool streams digitized sweeps from an FMCW radar front-end\n" +
		"over an FT2232H USB FIFO bridge, recovers sweep framing in real time,\n" +
		"and optionally records the raw bitstream for offline replay.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(config.Initialize())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
