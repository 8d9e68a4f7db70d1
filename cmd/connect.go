package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open and bootstrap a session, then print its context",
	Long: `Connect to Snowflake with connection.json, switch into the configured
database, schema, role and warehouse, resize the warehouse, tag the session
and print where it ended up.`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	session, info, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	printer := newPrinter(cmd, 0)
	newUI(cmd).Print(printer.KeyValues([][2]string{
		{"User", info.User},
		{"Role", info.Role},
		{"Database", info.Database},
		{"Schema", info.Schema},
		{"Warehouse", info.Warehouse},
		{"Warehouse Size", info.WarehouseSize},
		{"Server Version", info.ServerVersion},
		{"Driver Version", info.DriverVersion},
		{"Query Tag", info.QueryTag},
		{"Feature Store", strconv.FormatBool(info.FeatureStoreSupported)},
	}))
	return nil
}
