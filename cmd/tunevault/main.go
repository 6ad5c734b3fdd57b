// Command tunevault is the CLI entry point for the batch organizer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tunevault/tunevault/cmd/tunevault/organize"
	"github.com/tunevault/tunevault/cmd/tunevault/rollback"
	"github.com/tunevault/tunevault/internal/conf"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	settings := conf.Defaults()

	cmd := &cobra.Command{
		Use:   "tunevault",
		Short: "Audio library identification and organization",
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if configPath := viper.GetString("config"); configPath != "" {
			loaded, err := conf.Load(configPath)
			if err != nil {
				return err
			}
			*settings = *loaded
		}
		return nil
	}

	cmd.AddCommand(organize.Command(settings), rollback.Command(settings))
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.PersistentFlags().String("config", "", "Path to config file")
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", false, "Enable debug output")

	return viper.BindPFlags(cmd.PersistentFlags())
}
