package ui

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/jar-ry/Snowflake-Data-Science/internal/snowflake"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
)

// Asker is the part of survey the wizard talks to.
type Asker interface {
	Ask(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error
	AskOne(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error
}

type surveyAsker struct{}

func (surveyAsker) Ask(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error {
	return survey.Ask(qs, response, opts...)
}

func (surveyAsker) AskOne(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
	return survey.AskOne(p, response, opts...)
}

// WizardResult is what the configuration wizard collected.
type WizardResult struct {
	Connection *models.Connection
	Settings   models.Settings
	UseKeyring bool
}

// ConfigWizard walks through connection.json and settings.yaml.
type ConfigWizard struct {
	asker       Asker
	currentStep int
	totalSteps  int
}

// NewConfigWizard creates a wizard that prompts on the terminal.
func NewConfigWizard() *ConfigWizard {
	return NewConfigWizardWithAsker(surveyAsker{})
}

// NewConfigWizardWithAsker creates a wizard backed by asker.
func NewConfigWizardWithAsker(asker Asker) *ConfigWizard {
	return &ConfigWizard{
		asker:       asker,
		currentStep: 1,
		totalSteps:  4,
	}
}

type connectionAnswers struct {
	Account       string `survey:"account"`
	User          string `survey:"user"`
	Authenticator string `survey:"authenticator"`
}

type environmentAnswers struct {
	ScaleFactor   string `survey:"scaleFactor"`
	Database      string `survey:"database"`
	Schema        string `survey:"schema"`
	Role          string `survey:"role"`
	Warehouse     string `survey:"warehouse"`
	WarehouseSize string `survey:"warehouseSize"`
}

type storeAnswers struct {
	RegistrySchema     string `survey:"registrySchema"`
	FeatureStoreSchema string `survey:"featureStoreSchema"`
}

// Run executes the wizard starting from defaults.
func (w *ConfigWizard) Run(defaults models.Settings) (*WizardResult, error) {
	ShowHeader("Snowflake Data Science - Setup")

	result := &WizardResult{
		Connection: &models.Connection{},
		Settings:   defaults,
	}

	steps := []func(*WizardResult) error{
		w.configureConnectionStep,
		w.configureEnvironmentStep,
		w.configureStoresStep,
		w.reviewConfiguration,
	}
	for _, step := range steps {
		if err := step(result); err != nil {
			if err == terminal.InterruptErr {
				return nil, errors.New(errors.ErrCodeUserInput, "Configuration cancelled")
			}
			return nil, err
		}
	}
	return result, nil
}

func (w *ConfigWizard) configureConnectionStep(result *WizardResult) error {
	w.showProgress("Snowflake Connection")

	questions := []*survey.Question{
		{
			Name: "account",
			Prompt: &survey.Input{
				Message: "Snowflake Account:",
				Help:    "Your Snowflake account identifier (e.g., xy12345.us-east-1)",
			},
			Validate: survey.Required,
		},
		{
			Name: "user",
			Prompt: &survey.Input{
				Message: "Username:",
			},
			Validate: survey.Required,
		},
		{
			Name: "authenticator",
			Prompt: &survey.Select{
				Message: "Authentication:",
				Options: []string{"snowflake", "snowflake_jwt", "externalbrowser"},
				Default: "snowflake",
				Help:    "Password, key pair or browser based single sign-on",
			},
		},
	}

	var answers connectionAnswers
	if err := w.asker.Ask(questions, &answers); err != nil {
		return err
	}

	conn := result.Connection
	conn.Account = strings.TrimSpace(answers.Account)
	conn.User = strings.TrimSpace(answers.User)
	conn.Authenticator = answers.Authenticator
	if conn.Authenticator == "snowflake" {
		conn.Authenticator = ""
	}

	switch answers.Authenticator {
	case "snowflake", "":
		prompt := &survey.Password{
			Message: "Password:",
			Help:    "Stored in the OS keyring when you choose so at the end",
		}
		if err := w.asker.AskOne(prompt, &conn.Password, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	case "snowflake_jwt":
		prompt := &survey.Input{
			Message: "Private Key File:",
			Default: "rsa_key.p8",
			Help:    "Unencrypted PKCS#8 or PKCS#1 PEM file registered for the user",
		}
		if err := w.asker.AskOne(prompt, &conn.PrivateKeyFile, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	w.currentStep++
	return nil
}

func (w *ConfigWizard) configureEnvironmentStep(result *WizardResult) error {
	w.showProgress("Environment")

	env := result.Settings.Environment
	questions := []*survey.Question{
		{
			Name: "scaleFactor",
			Prompt: &survey.Input{
				Message: "Scale Factor:",
				Default: env.ScaleFactor,
				Help:    "Used to derive the quickstart database and warehouse names",
			},
			Validate: survey.Required,
		},
		{
			Name: "database",
			Prompt: &survey.Input{
				Message: "Database (blank for quickstart default):",
				Default: env.Database,
			},
		},
		{
			Name: "schema",
			Prompt: &survey.Input{
				Message: "Schema:",
				Default: env.Schema,
				Help:    "Schema every session switches to",
			},
			Validate: survey.Required,
		},
		{
			Name: "role",
			Prompt: &survey.Input{
				Message: "Role:",
				Default: env.Role,
			},
		},
		{
			Name: "warehouse",
			Prompt: &survey.Input{
				Message: "Warehouse (blank for quickstart default):",
				Default: env.Warehouse,
			},
		},
		{
			Name: "warehouseSize",
			Prompt: &survey.Select{
				Message: "Warehouse Size:",
				Options: snowflake.WarehouseSizes(),
				Default: defaultSize(env.WarehouseSize),
			},
		},
	}

	var answers environmentAnswers
	if err := w.asker.Ask(questions, &answers); err != nil {
		return err
	}

	result.Settings.Environment = models.Environment{
		ScaleFactor:   strings.ToUpper(strings.TrimSpace(answers.ScaleFactor)),
		Database:      strings.TrimSpace(answers.Database),
		Schema:        strings.TrimSpace(answers.Schema),
		Role:          strings.TrimSpace(answers.Role),
		Warehouse:     strings.TrimSpace(answers.Warehouse),
		WarehouseSize: defaultSize(answers.WarehouseSize),
	}

	w.currentStep++
	return nil
}

func (w *ConfigWizard) configureStoresStep(result *WizardResult) error {
	w.showProgress("Model Registry and Feature Store")

	questions := []*survey.Question{
		{
			Name: "registrySchema",
			Prompt: &survey.Input{
				Message: "Model Registry Schema:",
				Default: result.Settings.ModelRegistry.Schema,
			},
			Validate: survey.Required,
		},
		{
			Name: "featureStoreSchema",
			Prompt: &survey.Input{
				Message: "Feature Store Schema (blank to skip):",
				Default: result.Settings.FeatureStore.Schema,
			},
		},
	}

	var answers storeAnswers
	if err := w.asker.Ask(questions, &answers); err != nil {
		return err
	}

	env := result.Settings.Environment
	result.Settings.ModelRegistry = models.ModelRegistry{
		Database: env.DatabaseName(),
		Schema:   strings.TrimSpace(answers.RegistrySchema),
	}
	if schema := strings.TrimSpace(answers.FeatureStoreSchema); schema != "" {
		result.Settings.FeatureStore = models.FeatureStore{
			Database:  env.DatabaseName(),
			Schema:    schema,
			Warehouse: env.WarehouseName(),
		}
	}

	w.currentStep++
	return nil
}

func (w *ConfigWizard) reviewConfiguration(result *WizardResult) error {
	w.showProgress("Review Configuration")

	conn := result.Connection
	env := result.Settings.Environment
	auth := conn.Authenticator
	if auth == "" {
		auth = "snowflake"
	}

	printer := NewResultPrinter(supportsColor, 0)
	fmt.Fprintln(stdout, "\n"+ColorInfo("Configuration Summary:"))
	fmt.Fprint(stdout, printer.KeyValues([][2]string{
		{"Account", conn.Account},
		{"User", conn.User},
		{"Authentication", auth},
		{"Database", env.DatabaseName()},
		{"Schema", env.Schema},
		{"Role", env.Role},
		{"Warehouse", fmt.Sprintf("%s (%s)", env.WarehouseName(), env.WarehouseSize)},
		{"Model Registry", snowflake.Qualify(result.Settings.ModelRegistry.Database, result.Settings.ModelRegistry.Schema)},
		{"Feature Store", snowflake.Qualify(result.Settings.FeatureStore.Database, result.Settings.FeatureStore.Schema)},
	}))

	if conn.Password != "" {
		prompt := &survey.Confirm{
			Message: "Store the password in the OS keyring instead of connection.json?",
			Default: true,
		}
		if err := w.asker.AskOne(prompt, &result.UseKeyring); err != nil {
			return err
		}
	}

	confirm := false
	prompt := &survey.Confirm{
		Message: "Save this configuration?",
		Default: true,
	}
	if err := w.asker.AskOne(prompt, &confirm); err != nil {
		return err
	}
	if !confirm {
		return errors.New(errors.ErrCodeUserInput, "Configuration cancelled")
	}

	w.currentStep++
	return nil
}

func (w *ConfigWizard) showProgress(step string) {
	fmt.Fprintf(stdout, "\n%s [Step %d/%d] %s\n\n",
		ColorProgress("►"),
		w.currentStep,
		w.totalSteps,
		ColorBold(step),
	)
}

func defaultSize(size string) string {
	size = strings.ToUpper(strings.TrimSpace(size))
	if size == "" {
		return "MEDIUM"
	}
	return size
}
