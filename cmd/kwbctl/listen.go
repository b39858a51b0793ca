package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/adapter/source"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/spf13/cobra"
)

var (
	listenDuration time.Duration
	listenRaw      bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print every frame broadcast by the heater",
	Long: `Continuously decode and display the frames the heater broadcasts on its
stream bus. Only the tcp and serial transports broadcast; modbus is polled.`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().DurationVar(&listenDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	listenCmd.Flags().BoolVar(&listenRaw, "raw", false, "print the payload as hex instead of decoded signals")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	groups, err := kwb.LoadSignalMaps(cfg.Heater.SignalSource)
	if err != nil {
		return err
	}
	src, err := source.NewMessageSource(cfg.Heater, groups, logger)
	if err != nil {
		return err
	}
	stream, ok := src.(*kwb.StreamSource)
	if !ok {
		return fmt.Errorf("listen needs a broadcasting transport, %s is polled", cfg.Heater.Protocol)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if listenDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, listenDuration)
		defer cancel()
	}

	if err := stream.Open(); err != nil {
		return err
	}
	defer stream.Close()

	for ctx.Err() == nil {
		msg, err := stream.Next(cfg.Heater.ReadTimeout())
		if errors.Is(err, kwb.ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Print(formatMessage(time.Now(), *msg, groups))
	}

	stats := stream.Stats()
	fmt.Printf("\n%d frames, %d checksum errors\n", stats.Frames, stats.ChecksumErrors)
	return nil
}

func formatMessage(at time.Time, msg kwb.RawMessage, groups []kwb.SignalGroup) string {
	out := fmt.Sprintf("[%s] message 0x%02X counter=%d len=%d\n", at.Format("15:04:05.000"), msg.ID, msg.Counter, len(msg.Payload))

	readings := kwb.Decode(msg, groups)
	if listenRaw || len(readings) == 0 {
		out += "  payload:"
		for i, b := range msg.Payload {
			if i > 0 && i%16 == 0 {
				out += "\n          "
			}
			out += fmt.Sprintf(" %02X", b)
		}
		return out + "\n"
	}

	keys := make([]string, 0, len(readings))
	for key := range readings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		r := readings[key]
		out += fmt.Sprintf("  %-32s %s %s\n", key, r.Value, r.Definition.Unit)
	}
	return out
}
