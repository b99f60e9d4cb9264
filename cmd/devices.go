package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"

	"fmcw/ftdi"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List USB serial bridges and flag radar candidates",
	Long: "List detailed USB serial ports. The FT2232H's second channel\n" +
		"enumerates as a serial port even while channel A runs the FIFO,\n" +
		"which makes this a quick way to spot the radar.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := enumerator.GetDetailedPortsList()
		cobra.CheckErr(err)

		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return
		}

		for _, port := range ports {
			if !port.IsUSB {
				fmt.Printf("%s\n", port.Name)
				continue
			}
			tag := ""
			if matchesRadar(port.VID, port.PID) {
				tag = "  <- radar FIFO bridge"
			}
			fmt.Printf("%s  VID=%s PID=%s SN=%s%s\n",
				port.Name, port.VID, port.PID, port.SerialNumber, tag)
		}
	},
}

// matchesRadar reports whether the port's VID/PID strings identify the
// FT2232H the radar front-end is built around.
func matchesRadar(vid, pid string) bool {
	v, err := strconv.ParseUint(vid, 16, 16)
	if err != nil {
		return false
	}
	p, err := strconv.ParseUint(pid, 16, 16)
	if err != nil {
		return false
	}
	return uint16(v) == ftdi.VendorID && uint16(p) == ftdi.ProductID
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
