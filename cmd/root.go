package cmd

import (
	"fmt"
	"os"

	"servicebook/internal/cmd/root"
	"servicebook/internal/maintenance"
	"servicebook/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = NewRootCommand()

// NewRootCommand builds the servicebook command and binds its flags to viper.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servicebook",
		Short: "Interactive vehicle maintenance tracker",
		Long: "servicebook prompts for a vehicle, its maintenance and repair issues, " +
			"and reports when the next maintenance is due.",
		Run: root.Run,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	cmd.PersistentFlags().Float64("interval", maintenance.DefaultInterval, "Mileage between two maintenance visits")
	cmd.PersistentFlags().Bool("tui", false, "Show the vehicle record in a TUI after the session")
	cmd.PersistentFlags().Bool("obd", false, "Read trouble codes and odometer from an OBD-II adapter")
	cmd.PersistentFlags().Bool("mock", false, "Use mock OBD provider")
	cmd.PersistentFlags().String("port", "", "Serial device of the OBD-II adapter (platform default when empty)")
	cmd.PersistentFlags().Int("baud", 38400, "Baud rate for serial connection")

	for _, name := range []string{"debug", "interval", "tui", "obd", "mock", "port", "baud"} {
		viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name))
	}

	// Set default values
	viper.SetDefault("debug", false)
	viper.SetDefault("interval", maintenance.DefaultInterval)
	viper.SetDefault("tui", false)
	viper.SetDefault("obd", false)
	viper.SetDefault("mock", false)
	viper.SetDefault("port", "")
	viper.SetDefault("baud", 38400)

	return cmd
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)
}

func initConfig() {
	viper.SetEnvPrefix("servicebook")
	viper.AutomaticEnv()

	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}

func initLogger() {
	if err := log.InitLogger(viper.GetBool("debug")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
}

func Execute() {
	defer log.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
