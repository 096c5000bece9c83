package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/dynenv"
	"github.com/omnicli/omni/internal/orchestrator"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Shell integration hooks",
}

var hookCachePath string

var hookEnvCmd = &cobra.Command{
	Use:   "env <bash|zsh|fish|posix>",
	Short: "Print the shell script that applies the current work directory's environment",
	Long: `env recomputes the environment the current work directory's
installs contribute and prints it as a shell script to be eval'd from
a prompt hook. It always prints the full script; pair it with
OMNI_ENV_FINGERPRINT in your prompt hook to skip eval'ing when
nothing changed -- omni never touches your shell's environment on
its own.`,
	Args: cobra.ExactArgs(1),
	RunE: runHookEnv,
}

func init() {
	hookEnvCmd.Flags().StringVar(&hookCachePath, "cache-path", "", "Override the cache root directory")
	hookCmd.AddCommand(hookEnvCmd)
}

func runHookEnv(cmd *cobra.Command, args []string) error {
	shell, err := dynenv.ParseShellType(args[0])
	if err != nil {
		return err
	}

	wd, err := findWorkDir()
	if err != nil {
		return err
	}
	if err := wd.EnsureID(); err != nil {
		return err
	}

	paths, err := resolvePaths(hookCachePath, "")
	if err != nil {
		return err
	}

	store, err := cache.Open(paths)
	if err != nil {
		return err
	}
	defer store.Close()

	o := orchestrator.New(store, nil)

	env, err := o.RebuildEnv(cmd.Context(), wd.Identity())
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), dynenv.RenderHook(shell, env))
	return nil
}
