package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-sphero/sphero"
	"github.com/moffa90/go-sphero/transport/serial"
)

var (
	rootCmd = &cobra.Command{
		Use:               "spherectl",
		Short:             "Drive a Sphero robot from the command line.",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: resolveConfig,
	}

	configPath string
	flagConfig = defaultCLIConfig()
	config     cliConfig
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Configuration file (.toml or .hcl)")
	pf.StringVarP(&flagConfig.Port, "port", "p", flagConfig.Port, "Serial device")
	pf.IntVarP(&flagConfig.Baud, "baud", "b", flagConfig.Baud, "Baud rate")
	pf.DurationVarP(&flagConfig.Timeout, "timeout", "t", flagConfig.Timeout, "Response timeout")
	pf.IntVarP(&flagConfig.Retries, "retries", "r", flagConfig.Retries, "Connection retries")
	pf.StringVarP(&flagConfig.Metrics, "metrics", "m", "", "Prom metrics address")
	pf.BoolVarP(&flagConfig.Debug, "debug", "d", false, "Debug logging")
	pf.BoolVar(&flagConfig.Simulate, "simulate", false, "Talk to a simulated device")

	rootCmd.AddCommand(cmdPing, cmdLED, cmdRoll, cmdStop, cmdListen, cmdPorts)
}

func Execute() error {
	return rootCmd.Execute()
}

// resolveConfig loads the config file and overlays explicitly set flags.
func resolveConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = flagConfig.Port
	}
	if flags.Changed("baud") {
		cfg.Baud = flagConfig.Baud
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagConfig.Timeout
	}
	if flags.Changed("retries") {
		cfg.Retries = flagConfig.Retries
	}
	if flags.Changed("metrics") {
		cfg.Metrics = flagConfig.Metrics
	}
	if flags.Changed("debug") {
		cfg.Debug = flagConfig.Debug
	}
	if flags.Changed("simulate") {
		cfg.Simulate = flagConfig.Simulate
	}

	config = cfg
	return config.validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withClient opens a session, runs fn and closes the session.
func withClient(fn func(ctx context.Context, client *sphero.Client) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, config)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s.client)
}

func parseByteArg(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

var cmdPing = &cobra.Command{
	Use:   "ping",
	Short: "Check that the robot answers.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, client *sphero.Client) error {
			start := time.Now()
			if err := client.Ping(ctx); err != nil {
				return err
			}
			fmt.Printf("pong in %s\n", time.Since(start).Round(time.Microsecond))
			return nil
		})
	},
}

var ledPersist bool

var cmdLED = &cobra.Command{
	Use:   "led",
	Short: "Set or read the main LED colour.",
}

var cmdLEDSet = &cobra.Command{
	Use:   "set RED GREEN BLUE",
	Short: "Set the LED colour (0-255 per channel).",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		var rgb [3]int
		for i, name := range []string{"red", "green", "blue"} {
			v, err := parseByteArg(name, args[i])
			if err != nil {
				return err
			}
			rgb[i] = v
		}
		return withClient(func(ctx context.Context, client *sphero.Client) error {
			return client.SetRGBLED(ctx, rgb[0], rgb[1], rgb[2], ledPersist)
		})
	},
}

var cmdLEDGet = &cobra.Command{
	Use:   "get",
	Short: "Print the user LED colour.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, client *sphero.Client) error {
			c, err := client.GetRGBLED(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d %d %d (#%02X%02X%02X)\n", c.Red, c.Green, c.Blue, c.Red, c.Green, c.Blue)
			return nil
		})
	},
}

var cmdRoll = &cobra.Command{
	Use:   "roll SPEED HEADING",
	Short: "Roll at SPEED (0-255) towards HEADING (0-359).",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		speed, err := parseByteArg("speed", args[0])
		if err != nil {
			return err
		}
		heading, err := parseByteArg("heading", args[1])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, client *sphero.Client) error {
			return client.Roll(ctx, speed, heading)
		})
	},
}

var cmdStop = &cobra.Command{
	Use:   "stop [HEADING]",
	Short: "Stop rolling.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		heading := 0
		if len(args) == 1 {
			h, err := parseByteArg("heading", args[0])
			if err != nil {
				return err
			}
			heading = h
		}
		return withClient(func(ctx context.Context, client *sphero.Client) error {
			return client.Stop(ctx, heading)
		})
	},
}

var listenDuration time.Duration

var cmdListen = &cobra.Command{
	Use:   "listen",
	Short: "Print asynchronous notifications until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withClient(func(ctx context.Context, client *sphero.Client) error {
			if listenDuration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, listenDuration)
				defer cancel()
			}

			for n := range client.Subscribe(ctx) {
				fmt.Printf("%s async id=0x%02X len=%d % X\n",
					n.ReceivedAt.Format(time.RFC3339Nano), n.IDCode, len(n.Data), n.Data)
			}

			if err := client.Err(); err != nil && !errors.Is(err, sphero.ErrClientClosed) {
				return err
			}
			return nil
		})
	},
}

var cmdPorts = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports.",
	Args:  cobra.NoArgs,
	// No device is opened, so skip config validation
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(_ *cobra.Command, _ []string) error {
		ports, err := serial.List()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	cmdLEDSet.Flags().BoolVar(&ledPersist, "persist", false, "Also store as the user LED colour")
	cmdLED.AddCommand(cmdLEDSet, cmdLEDGet)
	cmdListen.Flags().DurationVar(&listenDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
}
