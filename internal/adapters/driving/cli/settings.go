package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/ai"
	"github.com/custodia-labs/filings-qa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

var settingsNoCheck bool

// providerValidator pings AI providers after a change. Tests replace it.
var providerValidator driven.AIConfigValidator = ai.NewConfigValidator()

// settingsInput is where interactive prompts read from. Tests replace it.
var settingsInput io.Reader = os.Stdin

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the configuration in ~/.filings/config.toml.

Keys use the section names of the file, e.g. embedding.model or
retrieval.top_k. API keys are masked when shown.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cmd.Println(path)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one setting",
	Long: `Sets one key and saves the file. The change is rolled back when the
file no longer parses. Changes to embedding.* or llm.* are checked by
contacting the provider unless --no-check is given.

Examples:
  filings settings set retrieval.top_k 8
  filings settings set chunking.name section
  filings settings set vector_store.backend qdrant`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively choose the embedding provider, model and API key.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return configureProvider(cmd, bufio.NewReader(settingsInput), embeddingProviderFlow)
	},
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Interactively choose the language model provider, model and API key.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return configureProvider(cmd, bufio.NewReader(settingsInput), llmProviderFlow)
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Remove one setting so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

func init() {
	settingsSetCmd.Flags().BoolVar(&settingsNoCheck, "no-check", false, "skip contacting the provider")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := file.LoadConfig(path)
	if err != nil {
		return err
	}
	data, err := file.EncodeConfig(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	cmd.Printf("# %s\n\n", path)
	cmd.Print(string(data))
	cmd.Println()

	if err := cfg.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'filings settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	store, err := file.OpenConfigStore(path)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	cfg, err := setAndCheck(store, key, parseValue(raw))
	if err != nil {
		return err
	}

	if !settingsNoCheck {
		if err := checkProvider(cmd, key, cfg); err != nil {
			return err
		}
	}

	cmd.Printf("Set %s\n", key)
	if err := cfg.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	key := args[0]

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	store, err := file.OpenConfigStore(path)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	if _, ok := store.Get(key); !ok {
		keys := store.Keys()
		if len(keys) == 0 {
			return fmt.Errorf("%w: %s is not set; %s sets no keys", domain.ErrInvalidInput, key, path)
		}
		return fmt.Errorf("%w: %s is not set; set keys: %s", domain.ErrInvalidInput, key, strings.Join(keys, ", "))
	}
	if err := store.Delete(key); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	cfg, err := file.LoadConfig(path)
	if err != nil {
		return err
	}
	cmd.Printf("Unset %s\n", key)
	if err := cfg.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

// setAndCheck stores value under key and re-reads the file, restoring the
// previous value when the result no longer decodes.
func setAndCheck(store driven.ConfigStore, key string, value any) (domain.Config, error) {
	previous, existed := store.Get(key)
	if err := store.Set(key, value); err != nil {
		return domain.Config{}, fmt.Errorf("save %s: %w", key, err)
	}

	cfg, err := file.LoadConfig(store.Path())
	if err == nil {
		return cfg, nil
	}

	var restoreErr error
	if existed {
		restoreErr = store.Set(key, previous)
	} else {
		restoreErr = store.Delete(key)
	}
	if restoreErr != nil {
		return domain.Config{}, fmt.Errorf("%w (restoring %s also failed: %v)", err, key, restoreErr)
	}
	return domain.Config{}, err
}

// checkProvider pings the provider a changed key belongs to.
func checkProvider(cmd *cobra.Command, key string, cfg domain.Config) error {
	var check func() error
	switch {
	case strings.HasPrefix(key, "embedding."):
		check = func() error { return providerValidator.ValidateEmbedding(cmd.Context(), &cfg.Embedding) }
	case strings.HasPrefix(key, "llm."):
		check = func() error { return providerValidator.ValidateLLM(cmd.Context(), &cfg.LLM) }
	default:
		return nil
	}

	cmd.Print("Validating configuration... ")
	if err := check(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("provider check failed, the setting was saved; re-run with --no-check to skip: %w", err)
	}
	cmd.Println("OK")
	return nil
}

// parseValue converts a command-line value to the TOML type it most
// likely means.
func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// providerFlow describes one interactive provider setup.
type providerFlow struct {
	section   string
	title     string
	providers func() []domain.AIProvider
	models    func() map[domain.AIProvider]string
	validate  func(ctx context.Context, cfg domain.Config) error
}

var embeddingProviderFlow = providerFlow{
	section:   "embedding",
	title:     "Embedding",
	providers: domain.AllEmbeddingProviders,
	models:    domain.DefaultEmbeddingModels,
	validate:  func(ctx context.Context, cfg domain.Config) error { return providerValidator.ValidateEmbedding(ctx, &cfg.Embedding) },
}

var llmProviderFlow = providerFlow{
	section:   "llm",
	title:     "LLM",
	providers: domain.AllLLMProviders,
	models:    domain.DefaultLLMModels,
	validate:  func(ctx context.Context, cfg domain.Config) error { return providerValidator.ValidateLLM(ctx, &cfg.LLM) },
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, flow providerFlow) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	store, err := file.OpenConfigStore(path)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	cmd.Printf("Select %s Provider\n", flow.title)
	providers := flow.providers()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := flow.models()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey = readPassword(reader)
		cmd.Println()
	}

	values := map[string]any{
		flow.section + ".provider": string(selected),
		flow.section + ".model":    model,
	}
	if apiKey != "" {
		values[flow.section+".api_key"] = apiKey
	}
	if err := store.SetMany(values); err != nil {
		return fmt.Errorf("save %s settings: %w", flow.section, err)
	}

	cfg, err := file.LoadConfig(path)
	if err != nil {
		return err
	}

	cmd.Print("Validating configuration... ")
	if err := flow.validate(cmd.Context(), cfg); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(flow.title), err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", flow.title, selected.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if settingsInput == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}
