package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/jar-ry/Snowflake-Data-Science/internal/common"
	"github.com/jar-ry/Snowflake-Data-Science/internal/config"
	"github.com/jar-ry/Snowflake-Data-Science/internal/observability"
	"github.com/jar-ry/Snowflake-Data-Science/internal/ui"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

var initFlags struct {
	keyring bool
	force   bool
}

// newWizard is swapped in tests.
var newWizard = ui.NewConfigWizard

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write connection.json and settings.yaml interactively",
	Long: `Walk through the Snowflake connection and the workspace defaults, then
write connection.json (to --connection or the config directory) and
settings.yaml. Passwords can be kept in the OS keyring instead of the file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.keyring, "keyring", false, "Always store the password in the OS keyring")
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing files without asking")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	connPath := rootFlags.connection
	if connPath == "" {
		connPath = config.ResolveConnectionFile("")
	}
	cleaned, err := common.CleanPath(connPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid connection file path").
			WithContext("path", connPath)
	}

	if !initFlags.force && (fileExists(cleaned) || config.SettingsExist()) {
		overwrite := false
		prompt := &survey.Confirm{
			Message: "Configuration already exists. Do you want to overwrite it?",
			Default: false,
		}
		if err := survey.AskOne(prompt, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			newUI(cmd).Info("Setup cancelled.")
			return nil
		}
	}

	result, err := newWizard().Run(*currentSettings())
	if err != nil {
		return err
	}

	useKeyring := result.UseKeyring || initFlags.keyring
	if err := config.SaveConnection(cleaned, result.Connection, useKeyring); err != nil {
		return err
	}
	if err := config.SaveSettings(&result.Settings); err != nil {
		return err
	}
	observability.Infof("Saved connection %s and settings %s (keyring: %t)", cleaned, config.GetSettingsFile(), useKeyring)

	out := newUI(cmd)
	out.Success(fmt.Sprintf("Wrote %s", cleaned))
	out.Success(fmt.Sprintf("Wrote %s", config.GetSettingsFile()))
	if useKeyring && result.Connection.Password != "" {
		out.Info(fmt.Sprintf("Password stored in the OS keyring under %q", config.KeyringService))
	}
	out.Println("Next: sfds connect")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
