package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"fmcw/radar"
)

var writeCmd = &cobra.Command{
	Use:   "write VALUE[:NBYTES]...",
	Short: "Send configuration words to the radar",
	Long: "Queue one or more configuration words and flush them to the radar\n" +
		"as a single transfer. Each VALUE may carry an explicit byte count\n" +
		"(1..4) after a colon; the default is the smallest count that fits.\n" +
		"Values are sent little-endian, in argument order.",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		r := radar.New()
		cobra.CheckErr(r.Open())
		defer r.Close()

		for _, arg := range args {
			val, nbytes, err := parseWriteArg(arg)
			cobra.CheckErr(err)
			cobra.CheckErr(r.EnqueueWrite(val, nbytes))
		}
		cobra.CheckErr(r.FlushWrites())
		log.Info("configuration flushed", "words", len(args))
	},
}

// parseWriteArg parses "VALUE" or "VALUE:NBYTES". VALUE accepts the
// usual Go literal bases (0x.., 0o.., decimal).
func parseWriteArg(arg string) (uint32, int, error) {
	valStr, nStr, explicit := strings.Cut(arg, ":")

	val, err := strconv.ParseUint(valStr, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad value %q: %w", valStr, err)
	}

	nbytes := 1
	for val>>(8*nbytes) != 0 {
		nbytes++
	}
	if explicit {
		n, err := strconv.Atoi(nStr)
		if err != nil {
			return 0, 0, fmt.Errorf("bad byte count %q: %w", nStr, err)
		}
		if n < nbytes {
			return 0, 0, fmt.Errorf("value %#x does not fit in %d bytes", val, n)
		}
		nbytes = n
	}
	return uint32(val), nbytes, nil
}

func init() {
	rootCmd.AddCommand(writeCmd)
}
