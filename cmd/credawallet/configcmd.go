package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jask/credawallet/internal/config"
	"github.com/jask/credawallet/internal/logging"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, k := range config.Keys {
				v, _ := cfg.Get(k)
				fmt.Fprintf(tw, "%s\t%s\n", k, v)
			}
			return tw.Flush()
		},
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and write the config file",
		Long:  `Change one setting and write the config file. The API key is not a setting: use "credawallet key set".`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}
			v, _ := cfg.Get(args[0])
			logging.FromContext(cmd.Context()).Info().Str("key", args[0]).Str("value", v).Msg("config updated")
			fmt.Printf("%s = %s\n", args[0], v)
			return nil
		},
	})
	rootCmd.AddCommand(configCmd)
}
