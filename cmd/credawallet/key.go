package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/credawallet/internal/logging"
	"github.com/jask/credawallet/internal/secrets"
)

func init() {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored provider API key",
	}
	keyCmd.AddCommand(&cobra.Command{
		Use:   "set [api-key]",
		Short: "Store the provider API key (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read api key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("api key is empty")
			}
			if err := (&secrets.Store{}).Put(secrets.ProviderAPIKey, key); err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info().Str("api_key", logging.Redact(key)).Msg("api key stored")
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", logging.Redact(key))
			return nil
		},
	})
	keyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored provider API key and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := &secrets.Store{}
			for _, name := range []string{secrets.ProviderAPIKey, secrets.SessionToken} {
				if err := store.Delete(name); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	})
	rootCmd.AddCommand(keyCmd)
}
