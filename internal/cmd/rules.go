package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/catcher-sh/catcher/internal/rules"
	"github.com/catcher-sh/catcher/internal/util"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules in the rules file",
	Long: `Rules shows every rule in the rules file the way the watcher will read
it, including entries that would be skipped and why. Use --for-session
to see only the rules that apply to a given session name.`,
	RunE: runRules,
}

var (
	rulesFile       string
	rulesForSession string
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVar(&rulesFile, "rules", "", "rules file (default is ~/.catcher/rules.json)")
	rulesCmd.Flags().StringVar(&rulesForSession, "for-session", "", "only show rules that apply to this session")
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if rulesFile != "" {
		cfg.Rules.File = rulesFile
	}
	path := cfg.Rules.ResolveFile("")

	parsed, skipped, err := rules.ParseFile(path)
	if err != nil {
		return err
	}

	if rulesForSession != "" {
		kept := parsed[:0]
		for _, r := range parsed {
			if r.AppliesTo(rulesForSession) {
				kept = append(kept, r)
			}
		}
		parsed = kept
	}

	fmt.Printf("Rules from %s\n", path)
	fmt.Println(strings.Repeat("─", 70))
	if len(parsed) == 0 {
		fmt.Println("  (no rules)")
	}
	for i, r := range parsed {
		fmt.Printf("  %d. pattern:  %q\n", i+1, r.Pattern)
		if r.ObserveOnly() {
			fmt.Printf("     action:   (observe only)\n")
		} else {
			// Keep long actions inside the 70-column frame
			fmt.Printf("     action:   %s\n", util.TruncateANSI(r.Action, 55))
		}
		if len(r.Sessions) > 0 {
			fmt.Printf("     sessions: %s\n", strings.Join(r.Sessions, ", "))
		}
		if r.DebounceMs != nil {
			fmt.Printf("     debounce: %dms\n", *r.DebounceMs)
		}
		if r.OnBusy != "" {
			fmt.Printf("     on_busy:  %s\n", r.OnBusy)
		}
	}
	fmt.Println(strings.Repeat("─", 70))

	switch {
	case rulesForSession != "":
		fmt.Printf("%d rule(s) apply to session %q\n", len(parsed), rulesForSession)
	case len(skipped) > 0:
		fmt.Printf("%d rule(s), %d entry(s) skipped\n", len(parsed), len(skipped))
	default:
		fmt.Printf("%d rule(s)\n", len(parsed))
	}

	if len(skipped) > 0 {
		fmt.Println()
		fmt.Println("Skipped entries:")
		for _, s := range skipped {
			fmt.Printf("  - entry %d: %s\n", s.Index+1, s.Reason)
		}
		fmt.Println()
		fmt.Println("Skipped entries are ignored by the watcher until fixed.")
	}

	return nil
}
