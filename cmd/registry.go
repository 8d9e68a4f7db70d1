package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jar-ry/Snowflake-Data-Science/internal/observability"
	"github.com/jar-ry/Snowflake-Data-Science/internal/snowflake"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/versioning"
)

var registryFlags struct {
	database string
	schema   string
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Model registry schema and version tags",
}

var registryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the model registry schema, or open it when it exists",
	Args:  cobra.NoArgs,
	RunE:  runRegistryCreate,
}

var registryNextCmd = &cobra.Command{
	Use:   "next-version MODEL",
	Short: "Print the version tag the next logged model should use",
	Long: `Print the version tag the next logged version of MODEL should use. A model
that does not exist yet, or a registry schema that does not exist yet,
starts at V_1.`,
	Example: "  sfds registry next-version CUSTOMER_CHURN",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRegistryVersion(cmd, args[0], (*snowflake.ModelRegistry).NextVersion)
	},
}

var registryLatestCmd = &cobra.Command{
	Use:   "latest-version MODEL",
	Short: "Print the highest existing version tag of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRegistryVersion(cmd, args[0], (*snowflake.ModelRegistry).LatestVersion)
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models with their version tags",
	Args:  cobra.NoArgs,
	RunE:  runRegistryList,
}

func init() {
	registryCmd.PersistentFlags().StringVar(&registryFlags.database, "registry-database", "", "Registry database (default from settings, then the current database)")
	registryCmd.PersistentFlags().StringVar(&registryFlags.schema, "registry-schema", "", "Registry schema (default from settings)")

	registryCmd.AddCommand(registryCreateCmd, registryNextCmd, registryLatestCmd, registryListCmd)
	rootCmd.AddCommand(registryCmd)
}

// registryLocation resolves the registry database and schema from flags,
// settings and finally the bootstrapped session.
func registryLocation(info *snowflake.SessionInfo) (string, string) {
	s := currentSettings()
	database := firstNonEmpty(registryFlags.database, s.ModelRegistry.Database)
	schema := firstNonEmpty(registryFlags.schema, s.ModelRegistry.Schema)
	if database == "" && info != nil {
		database = info.Database
		observability.Debugf("No registry database configured, using current database %s", database)
	}
	return database, schema
}

func runRegistryCreate(cmd *cobra.Command, args []string) error {
	session, info, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	database, schema := registryLocation(info)
	registry, created, err := session.CreateModelRegistry(cmd.Context(), database, schema)
	if err != nil {
		return err
	}

	out := newUI(cmd)
	if created {
		out.Success(fmt.Sprintf("Created model registry %s", registry.Name()))
	} else {
		out.Info(fmt.Sprintf("Model registry %s already exists", registry.Name()))
	}
	out.Print(registry.Name() + "\n")
	return nil
}

func runRegistryVersion(cmd *cobra.Command, model string,
	resolve func(*snowflake.ModelRegistry, context.Context, string) (versioning.Tag, error)) error {
	session, info, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	database, schema := registryLocation(info)
	registry := session.OpenModelRegistry(database, schema)

	tag, err := resolve(registry, cmd.Context(), model)
	if err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"registry": registry.Name(),
		"model":    model,
		"tag":      tag.String(),
	}).Debug("resolved model version")

	newUI(cmd).Print(newPrinter(cmd, 0).Tag(tag.String()) + "\n")
	return nil
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	session, info, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	database, schema := registryLocation(info)
	catalog, err := session.OpenModelRegistry(database, schema).Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	return printCatalog(cmd, catalog)
}

// printCatalog prints one row per entity with its latest tag and version count.
func printCatalog(cmd *cobra.Command, registry versioning.Registry) error {
	ctx := cmd.Context()
	names, err := registry.ListEntities(ctx)
	if err != nil {
		return err
	}

	res := &snowflake.Result{Columns: []string{"NAME", "LATEST", "VERSIONS"}}
	for _, name := range names {
		versions, err := registry.LookupVersions(ctx, name)
		if err != nil {
			return err
		}
		latest := ""
		if tag, ok, err := versioning.Max(versions); err == nil && ok {
			latest = tag.String()
		}
		res.Rows = append(res.Rows, []interface{}{name, latest, len(versions)})
	}

	newUI(cmd).Print(newPrinter(cmd, 0).Result(res))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
