package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/tempo/internal/profile"
	"github.com/hrygo/tempo/server"
)

const version = "0.3.1"

var rootCmd = &cobra.Command{
	Use:   "tempo",
	Short: "Natural-language scheduling service",
	RunE: func(_ *cobra.Command, _ []string) error {
		p := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Version: version,
		}
		p.FromEnv()
		if err := p.Validate(); err != nil {
			return err
		}

		srv, err := server.New(p)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		slog.Info("tempo server stopped")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `server mode, "dev" or "prod"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address")
	rootCmd.PersistentFlags().Int("port", 8230, "binding port")

	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))

	viper.SetEnvPrefix("tempo")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}
