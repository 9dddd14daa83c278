package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harshpatel5940/reelmark/internal/config"
	"github.com/harshpatel5940/reelmark/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage reelmark configuration",
	Long: `Manage the reelmark configuration file (~/.reelmark.yaml).

Configuration controls:
  - Where bookmarks are stored (file or redis)
  - The default cloud provider, folder and sync timeout
  - Backup encryption
  - S3 and Azure account settings
  - The local HTTP bridge

Every key can be overridden by an environment variable, e.g.
REELMARK_SYNC_TIMEOUT=90s or REELMARK_STORE_BACKEND=redis.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long: `Creates a default configuration file at ~/.reelmark.yaml.

If the file already exists, it will not be overwritten unless --force is used.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long:  `Displays the effective configuration, including defaults and environment overrides.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in default editor",
	Long: `Opens the configuration file in your default editor.

The editor is determined by the EDITOR environment variable,
falling back to 'vi' if not set.`,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

var (
	configForce bool
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite existing configuration file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("configuration file already exists at %s\nUse --force to overwrite", path)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	ui.PrintSuccess("Configuration file created at %s", path)
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, "Customize your settings:")
	fmt.Fprintf(ui.Out, "  %s\n", ui.Info("reelmark config edit"))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ui.PrintSectionHeader("⚙️", "Current Configuration")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	fmt.Fprintln(ui.Out, string(data))

	path, _ := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(ui.Out, "%s Using default configuration (no config file found)\n", ui.Info("📝"))
		fmt.Fprintf(ui.Out, "   Create one with: %s\n", ui.Info("reelmark config init"))
	} else {
		fmt.Fprintf(ui.Out, "%s Configuration loaded from: %s\n", ui.Info("📝"), path)
	}
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.DefaultConfig().Save(path); err != nil {
			return fmt.Errorf("failed to create configuration file: %w", err)
		}
		ui.PrintSuccess("Created new configuration file")
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	fmt.Fprintf(ui.Out, "Opening %s in %s...\n", path, editor)
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}

	if _, err := loadConfig(); err != nil {
		ui.PrintWarning("Configuration file has errors: %v", err)
		fmt.Fprintln(ui.Out, "Fix the errors and run 'reelmark config show' to verify.")
		return nil
	}

	ui.PrintSuccess("Configuration saved")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	fmt.Fprintln(ui.Out, path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "\n%s File does not exist. Create it with: reelmark config init\n", ui.Warning("⚠️"))
	}
	return nil
}
