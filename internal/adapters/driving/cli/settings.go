package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in ~/.nephra/config.toml.

Environment variables (and a .env file in the working directory) override
the stored values. Secrets are redacted when shown.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Persist a setting",
	Long: `Persist one setting by its dotted key, for example:

  nephra settings set vector_index.provider qdrant
  nephra settings set retrieval.top_k 6
  nephra settings set sync.interval 30m`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check settings and provider connectivity",
	Args:  cobra.NoArgs,
	RunE:  runSettingsValidate,
}

var settingsSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Set the admin secret without echoing it",
	Args:  cobra.NoArgs,
	RunE:  runSettingsSecret,
}

// secretReader reads the admin secret. Tests replace it.
var secretReader = readPassword

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	settingsCmd.AddCommand(settingsSecretCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	values, err := settingsService.Effective()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cmd.Println("Current Settings")
	cmd.Println("================")
	section := ""
	for _, k := range keys {
		if s, _, _ := strings.Cut(k, "."); s != section {
			section = s
			cmd.Printf("\n[%s]\n", section)
		}
		v := values[k]
		if v == "" {
			v = "(not set)"
		}
		cmd.Printf("  %s = %s\n", k, v)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'nephra settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s.\n", args[0])
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	cmd.Print("Embedding provider... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Print("Vector index... ")
	if err := settingsService.ValidateVectorIndexConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("vector index validation failed: %w", err)
	}
	cmd.Println("OK")

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.LLM.Provider == "" {
		cmd.Println("LLM provider... not configured (query refinement disabled)")
		return nil
	}
	cmd.Print("LLM provider... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

func runSettingsSecret(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Print("Enter admin secret: ")
	secret := secretReader()
	cmd.Println()
	if len(secret) < 12 {
		return errors.New("admin secret must be at least 12 characters")
	}

	if err := settingsService.Set("server.admin_secret", secret); err != nil {
		return fmt.Errorf("failed to set admin secret: %w", err)
	}
	cmd.Println("Admin secret saved.")
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
