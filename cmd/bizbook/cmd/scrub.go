package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bizbook/pkg/business"
)

// scrubCmd represents the scrub command.
var scrubCmd = &cobra.Command{
	Use:   "scrub",
	Short: "Repair distribution list chains and refcounts",
	Long: `Load the book, fold nested distribution list copies into their parent,
fill in or drop placeholder lists, recount list references and save the
result.

Loading already repairs the book in memory; scrub writes those repairs back.

Example:
  bizbook scrub`,
	Run: runScrub,
}

func runScrub(cmd *cobra.Command, args []string) {
	cfg, resolver := loadConfig()

	s := openSession(cfg.Book.Backend, resolver, false)
	defer s.Close()

	res := business.ScrubDistribLists(s.Book())
	exitOnError(s.Save(), "failed to save book")

	fmt.Println("\n=== Scrub Summary ===")
	fmt.Printf("Co-owners repointed:   %d\n", res.Repointed)
	fmt.Printf("Lists destroyed:       %d\n", res.Destroyed)
	fmt.Printf("  nested copies:       %d\n", res.Grandchild)
	fmt.Printf("  placeholders:        %d\n", res.Placeholder)
	fmt.Printf("Placeholders filled:   %d\n", res.Repaired)
	fmt.Printf("Refcounts fixed:       %d\n", res.Recounted)
	fmt.Println()

	slog.Info("Scrub completed", "changed", res.Changed())
}
