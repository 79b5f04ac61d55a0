package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anstrom/uplink/internal/auth"
)

var (
	apiKeyName   string
	apiKeySave   bool
	apiKeyOutput string
)

// apiKeysCmd represents the apikey command group
var apiKeysCmd = &cobra.Command{
	Use:     "apikey",
	Aliases: []string{"apikeys", "key"},
	Short:   "Generate and check the server API key",
	Long: `Generate the API key that protects the web UI and API.

The server stores only a bcrypt hash of the key in api.api_key_hash. The key
itself is printed once; give it to the browser with ?api_key=... or to CLI
commands with UPLINK_API_KEY.`,
	Example: `  uplink apikey generate --name laptop --save
  export UPLINK_API_KEY=upl_...
  uplink apikey verify upl_...`,
}

var apiKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyGenerate,
}

var apiKeyVerifyCmd = &cobra.Command{
	Use:   "verify KEY",
	Short: "Check a key against the configured hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyVerify,
}

func init() {
	rootCmd.AddCommand(apiKeysCmd)
	apiKeysCmd.AddCommand(apiKeyGenerateCmd)
	apiKeysCmd.AddCommand(apiKeyVerifyCmd)

	apiKeyGenerateCmd.Flags().StringVar(&apiKeyName, "name", "default", "label for the key")
	apiKeyGenerateCmd.Flags().BoolVar(&apiKeySave, "save", false, "write the hash to the config file")
	apiKeyGenerateCmd.Flags().StringVarP(&apiKeyOutput, "output", "o", "text", "output format: text, json")
}

func runAPIKeyGenerate(cmd *cobra.Command, _ []string) error {
	key, err := auth.GenerateAPIKey(apiKeyName)
	if err != nil {
		return fmt.Errorf("failed to generate API key: %w", err)
	}

	out := cmd.OutOrStdout()

	if apiKeySave {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.API.APIKeyHash = key.Hash
		path := getConfigFilePath()
		if err := cfg.Save(path); err != nil {
			return err
		}
		if apiKeyOutput != "json" {
			_, _ = successColor.Fprintf(out, "Saved key hash to %s\n", path)
		}
	}

	if apiKeyOutput == "json" {
		data, err := json.MarshalIndent(map[string]interface{}{
			"name":       key.Name,
			"key":        key.Key,
			"key_prefix": key.KeyPrefix,
			"hash":       key.Hash,
			"created_at": key.CreatedAt,
			"saved":      apiKeySave,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Name:   %s\n", key.Name)
	fmt.Fprintf(out, "Key:    %s\n", key.Key)
	fmt.Fprintf(out, "Prefix: %s\n", key.KeyPrefix)
	if !apiKeySave {
		fmt.Fprintf(out, "Hash:   %s\n", key.Hash)
		fmt.Fprintln(out, "\nSet api.api_key_hash to the hash above, or rerun with --save.")
	}
	_, _ = warnColor.Fprintln(out, "The key is shown only once. Store it somewhere safe.")
	return nil
}

func runAPIKeyVerify(cmd *cobra.Command, args []string) error {
	if !auth.IsValidAPIKeyFormat(args[0]) {
		return fmt.Errorf("not an uplink API key (expected %s_ prefix)", auth.APIKeyPrefix)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.API.APIKeyHash == "" {
		return fmt.Errorf("no API key hash configured")
	}
	if !auth.ValidateAPIKey(args[0], cfg.API.APIKeyHash) {
		return fmt.Errorf("key %s does not match the configured hash", auth.CreateDisplayPrefix(args[0]))
	}

	_, _ = successColor.Fprintf(cmd.OutOrStdout(), "Key %s is valid\n", auth.CreateDisplayPrefix(args[0]))
	return nil
}
