// cmd/clinostat/send.go
package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/link"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one command to the controller",
}

var sendResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the controller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(d *link.Device, _ *zap.Logger) error {
			return d.Reset()
		})
	},
}

var sendBeepCmd = &cobra.Command{
	Use:   "beep <ms>",
	Short: "Pulse the buzzer for 0..255 ms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("beep: %q is not a number of milliseconds", args[0])
		}
		return withDevice(func(d *link.Device, _ *zap.Logger) error {
			return d.Beep(n)
		})
	},
}

var sendHandshakeCmd = &cobra.Command{
	Use:   "handshake",
	Short: "Send the handshake and wait for the response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(d *link.Device, log *zap.Logger) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			d.OnMessage(link.TypeHandshakeResponse, func(m link.Message) {
				ssid, _ := m.Field("SSID")
				fmt.Fprintf(cmd.OutOrStdout(), "handshake answered (ssid=%s)\n", ssid)
				cancel()
			})

			errc := make(chan error, 1)
			go func() { errc <- d.Listen(ctx) }()

			if err := d.Handshake(); err != nil {
				return err
			}

			err := <-errc
			switch {
			case errors.Is(err, context.Canceled):
				return nil
			case errors.Is(err, link.ErrNotEstablished):
				return fmt.Errorf("no handshake response: %w", err)
			}
			return err
		})
	},
}

func init() {
	sendCmd.AddCommand(sendResetCmd, sendBeepCmd, sendHandshakeCmd)
	rootCmd.AddCommand(sendCmd)
}

// withDevice opens the link from the config file, runs fn and closes it.
func withDevice(fn func(*link.Device, *zap.Logger) error) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := openBus(cfg.Link.Bus)
	if err != nil {
		return err
	}
	d, err := openDevice(cfg.Link, b, log)
	if err != nil {
		return err
	}

	return errors.Join(fn(d, log), d.Close())
}
