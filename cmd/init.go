package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harshpatel5940/reelmark/internal/config"
	"github.com/harshpatel5940/reelmark/internal/crypto"
	"github.com/harshpatel5940/reelmark/internal/ui"
)

var initEncrypt bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize reelmark configuration and encryption key",
	Long: `Initialize reelmark by creating a default configuration file and an age
encryption key if they don't already exist.

This will create:
  - ~/.reelmark.yaml (configuration file)
  - ~/.reelmark.key (key used when sync.encrypt is on)`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initEncrypt, "encrypt", false, "Enable backup encryption in the new config")
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configExists := false
	if _, err := os.Stat(path); err == nil {
		configExists = true
	}

	cfg := config.DefaultConfig()
	if configExists {
		ui.PrintSuccess("Config already exists: %s", path)
		if cfg, err = loadConfig(); err != nil {
			return err
		}
	} else {
		cfg.Sync.Encrypt = initEncrypt
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
		ui.PrintSuccess("Created config: %s", path)
	}
	cfg.ExpandPaths()

	encryptor := crypto.NewEncryptor(cfg.Sync.KeyPath)
	keyExists := encryptor.KeyExists()
	if keyExists {
		ui.PrintSuccess("Encryption key already exists: %s", cfg.Sync.KeyPath)
	} else {
		if err := encryptor.GenerateKey(); err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		ui.PrintSuccess("Generated encryption key: %s", cfg.Sync.KeyPath)
		fmt.Fprintln(ui.Out)
		ui.PrintWarning("Copy this key to every device that syncs encrypted backups.")
		ui.PrintWarning("Without it, encrypted backups cannot be read.")
	}

	if !configExists || !keyExists {
		fmt.Fprintf(ui.Out, "\nNext steps:\n")
		fmt.Fprintf(ui.Out, "  1. Review %s (provider, store, encryption)\n", path)
		fmt.Fprintf(ui.Out, "  2. Run 'reelmark add <file> <position>' or start 'reelmark serve'\n")
		fmt.Fprintf(ui.Out, "  3. Run 'reelmark sync up --provider <name>' to create the first backup\n")
	} else {
		ui.PrintInfo("Already initialized")
	}
	return nil
}
