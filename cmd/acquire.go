package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"fmcw/config"
	"fmcw/frame"
	"fmcw/radar"
	"fmcw/stats"
)

var (
	acquireLog      string
	acquireBits     int
	acquireSweepLen int
	acquireFFT      bool
	acquireDuration time.Duration
	acquireDump     bool
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Stream sweeps from the radar",
	Long: "Open the radar, stream sweeps for the given duration (or until\n" +
		"interrupted), and report the achieved sweep rate and bandwidth.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if config.MetricsAddr != "" {
			stats.Serve(config.MetricsAddr)
		}

		r := radar.New()
		cobra.CheckErr(r.Open())
		defer r.Close()

		err := r.StartAcquisition(acquireLog, acquireBits, acquireSweepLen, acquireFFT)
		cobra.CheckErr(err)

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		defer signal.Stop(interrupt)

		var deadline <-chan time.Time
		if acquireDuration > 0 {
			deadline = time.After(acquireDuration)
		}

		sweep := make([]frame.Sample, acquireSweepLen)
		sweeps := 0
		start := time.Now()
	loop:
		for {
			select {
			case <-interrupt:
				log.Info("interrupted")
				break loop
			case <-deadline:
				break loop
			default:
			}
			if !r.ReadSweep(sweep) {
				time.Sleep(time.Millisecond)
				continue
			}
			sweeps++
			if acquireDump {
				for _, s := range sweep {
					fmt.Println(s)
				}
			}
		}
		elapsed := time.Since(start).Seconds()

		st := r.Stats()
		sampleBytes := frame.SampleBytes(acquireBits, acquireFFT)
		log.Info("acquisition finished",
			"sweeps_read", sweeps,
			"sweeps_published", st.Published,
			"sweeps_dropped", st.Dropped,
			"frames_discarded", st.Discarded,
			"sweeps_per_sec", fmt.Sprintf("%.1f", float64(sweeps)/elapsed),
			"bandwidth", fmt.Sprintf("%.3e B/s", float64(sweeps*acquireSweepLen*sampleBytes)/elapsed))
	},
}

func init() {
	rootCmd.AddCommand(acquireCmd)

	// Flag defaults are resolved from the active profile after the
	// config loads; see PersistentPreRun on the root command.
	acquireCmd.Flags().StringVar(&acquireLog, "log", "", "path for the raw bitstream log (empty disables)")
	acquireCmd.Flags().IntVar(&acquireBits, "bits", 0, "sample width in bits")
	acquireCmd.Flags().IntVar(&acquireSweepLen, "sweep-len", 0, "samples per sweep")
	acquireCmd.Flags().BoolVar(&acquireFFT, "fft", false, "stream carries packed FFT magnitude pairs")
	acquireCmd.Flags().DurationVar(&acquireDuration, "duration", 0, "how long to stream (0 = until interrupted)")
	acquireCmd.Flags().BoolVar(&acquireDump, "dump", false, "print every sample of every sweep read")

	acquireCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("log") {
			acquireLog = config.LogPath
		}
		if !cmd.Flags().Changed("bits") {
			acquireBits = config.SampleBits
		}
		if !cmd.Flags().Changed("sweep-len") {
			acquireSweepLen = config.SweepLen
		}
		if !cmd.Flags().Changed("fft") {
			acquireFFT = config.FFT
		}
	}
}
