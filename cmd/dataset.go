package cmd

import (
	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Dataset version tags in the current schema",
}

var datasetNextCmd = &cobra.Command{
	Use:   "next-version NAME",
	Short: "Print the version tag the next dataset version should use",
	Long: `Print the version tag the next version of dataset NAME should use. NAME is
resolved in the bootstrapped database and schema; a dataset that does not
exist yet starts at V_1.`,
	Example: "  sfds dataset next-version CUSTOMER_FEATURES",
	Args:    cobra.ExactArgs(1),
	RunE:    runDatasetNext,
}

var datasetLatestCmd = &cobra.Command{
	Use:   "latest-version NAME",
	Short: "Print the highest existing version tag of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetLatest,
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets with their version tags",
	Args:  cobra.NoArgs,
	RunE:  runDatasetList,
}

func init() {
	datasetCmd.AddCommand(datasetNextCmd, datasetLatestCmd, datasetListCmd)
	rootCmd.AddCommand(datasetCmd)
}

func runDatasetNext(cmd *cobra.Command, args []string) error {
	session, _, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	registry, err := session.DatasetRegistry(cmd.Context())
	if err != nil {
		return err
	}
	tag, err := registry.NextVersion(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	newUI(cmd).Print(newPrinter(cmd, 0).Tag(tag.String()) + "\n")
	return nil
}

func runDatasetLatest(cmd *cobra.Command, args []string) error {
	session, _, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	registry, err := session.DatasetRegistry(cmd.Context())
	if err != nil {
		return err
	}
	tag, err := registry.LatestVersion(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	newUI(cmd).Print(newPrinter(cmd, 0).Tag(tag.String()) + "\n")
	return nil
}

func runDatasetList(cmd *cobra.Command, args []string) error {
	session, _, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	registry, err := session.DatasetRegistry(cmd.Context())
	if err != nil {
		return err
	}
	return printCatalog(cmd, registry)
}
