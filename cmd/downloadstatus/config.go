package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/downloadstatus/internal/status"
)

const configName = ".downloadstatus"

// initConfig loads defaults, the config file and DOWNLOADSTATUS_* env vars.
// A missing default config file is not an error.
func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetDefault("check.path", status.DefaultPath)
	v.SetDefault("log.verbose", false)

	v.SetEnvPrefix("DOWNLOADSTATUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage downloadstatus configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.downloadstatus.yaml.",
		Example: `  downloadstatus config                                  # show all config
  downloadstatus config set check.path /data/covid.csv   # change the checked file
  downloadstatus config get check.path                   # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow(cmd)
		},
	}

	cmd.AddCommand(a.newConfigSetCmd())
	cmd.AddCommand(a.newConfigGetCmd())

	return cmd
}

func (a *app) newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSet(cmd, args[0], args[1])
		},
	}
}

func (a *app) newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigGet(cmd, args[0])
		},
	}
}

func (a *app) runConfigShow(cmd *cobra.Command) error {
	out, err := yaml.Marshal(a.v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

// runConfigSet stores key in the config file. It works on a viper that holds
// only the file's contents, so env vars, flags and defaults are not saved.
func (a *app) runConfigSet(cmd *cobra.Command, key, value string) error {
	cfgFile := a.v.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName+".yaml")
	}

	stored := viper.New()
	stored.SetConfigFile(cfgFile)
	if _, err := os.Stat(cfgFile); err == nil {
		if err := stored.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	// Parse boolean-like values
	switch value {
	case "true", "yes", "on":
		stored.Set(key, true)
	case "false", "no", "off":
		stored.Set(key, false)
	default:
		stored.Set(key, value)
	}

	if err := stored.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func (a *app) runConfigGet(cmd *cobra.Command, key string) error {
	if !a.v.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), a.v.Get(key))
	return nil
}
