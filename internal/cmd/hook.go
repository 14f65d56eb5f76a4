package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catcher-sh/catcher/internal/shell"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage the shell startup hook",
	Long: `The hook wraps new interactive shells with 'catcher run' automatically,
so every terminal you open is watched without thinking about it. It is
a small guarded block appended to your shell startup file; install and
uninstall leave the rest of the file untouched.`,
}

var hookRC string

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Add the hook to your shell startup file",
	RunE:  runHookInstall,
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the hook from your shell startup file",
	RunE:  runHookUninstall,
}

var hookPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the hook snippet without installing it",
	RunE:  runHookPrint,
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.PersistentFlags().StringVar(&hookRC, "rc", "", "startup file to edit (default depends on $SHELL)")
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookCmd.AddCommand(hookPrintCmd)
}

func hookTarget() string {
	if hookRC != "" {
		return hookRC
	}
	return shell.DefaultStartupFile()
}

func runHookInstall(cmd *cobra.Command, args []string) error {
	rc := hookTarget()
	changed, err := shell.Install(rc)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Printf("Hook already installed in %s\n", rc)
		return nil
	}
	fmt.Printf("Hook installed in %s\n", rc)
	fmt.Println()
	fmt.Printf("New shells will start under catcher. For this one, run: source %s\n", rc)
	return nil
}

func runHookUninstall(cmd *cobra.Command, args []string) error {
	rc := hookTarget()
	changed, err := shell.Uninstall(rc)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Printf("No hook found in %s\n", rc)
		return nil
	}
	fmt.Printf("Hook removed from %s\n", rc)
	return nil
}

func runHookPrint(cmd *cobra.Command, args []string) error {
	fmt.Print(shell.Snippet())
	return nil
}
