package root

import (
	"context"
	"fmt"
	"io"

	"servicebook/internal/displayer"
	"servicebook/internal/maintenance"
	"servicebook/internal/obd"
	"servicebook/internal/obd/mock"
	"servicebook/internal/obd/serial"
	"servicebook/internal/session"
	"servicebook/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func Run(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := execute(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		log.Fatal("session failed", zap.Error(err))
	}
}

func execute(ctx context.Context, in io.Reader, out io.Writer) error {
	interval := viper.GetFloat64("interval")
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}

	tracker := maintenance.New(out,
		maintenance.WithInterval(interval),
		maintenance.WithLogger(log.Get()))

	opts := []session.Option{}
	if provider := startProvider(ctx); provider != nil {
		defer provider.Stop()
		opts = append(opts, session.WithProvider(provider))
	}

	res, err := session.New(tracker, in, out, opts...).Run(ctx)
	if err != nil {
		return err
	}

	if viper.GetBool("tui") {
		d := displayer.New(tracker.Record(res.VehicleID), res.NextMaintenance)
		if err := d.Run(); err != nil {
			log.Error("failed to run TUI", zap.Error(err))
		}
	}
	return nil
}

// startProvider returns a started OBD provider, or nil when none is
// configured or it cannot be reached.
func startProvider(ctx context.Context) obd.Provider {
	var provider obd.Provider
	switch {
	case viper.GetBool("mock"):
		provider = mock.New(mock.DefaultOdometer)
	case viper.GetBool("obd"):
		provider = serial.New(viper.GetString("port"), viper.GetInt("baud"))
	default:
		return nil
	}

	if err := provider.Start(ctx); err != nil {
		log.Warn("failed to start OBD provider, continuing without it", zap.Error(err))
		return nil
	}
	return provider
}
