package main

import (
	"github.com/spf13/cobra"

	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/workdir"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage omni's user-level configuration",
}

var configTrustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Trust the current work directory",
	Long: `Trust records the current work directory's root (or, for a
git checkout with a recognized organization, the organization itself)
in your user configuration, so 'omni up' will apply its manifest
without asking again.`,
	RunE: runConfigTrust,
}

var configUntrustCmd = &cobra.Command{
	Use:   "untrust",
	Short: "Revoke trust for the current work directory",
	RunE:  runConfigUntrust,
}

func init() {
	configCmd.AddCommand(configTrustCmd, configUntrustCmd)
}

func runConfigTrust(cmd *cobra.Command, _ []string) error {
	wd, err := findWorkDir()
	if err != nil {
		return err
	}

	user, cfgPath, err := loadUser()
	if err != nil {
		return err
	}

	user = workdir.Trust(user, wd.Root)
	if err := config.SaveUserConfig(cfgPath, user); err != nil {
		return err
	}

	cmd.Printf("trusted %s\n", wd.Root)
	return nil
}

func runConfigUntrust(cmd *cobra.Command, _ []string) error {
	wd, err := findWorkDir()
	if err != nil {
		return err
	}

	user, cfgPath, err := loadUser()
	if err != nil {
		return err
	}

	user = workdir.Untrust(user, wd.Root)
	if err := config.SaveUserConfig(cfgPath, user); err != nil {
		return err
	}

	cmd.Printf("untrusted %s\n", wd.Root)
	return nil
}
