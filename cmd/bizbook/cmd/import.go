package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bizbook/pkg/seed"
)

var importDryRun bool

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Import records from a YAML seed file",
	Long: `Import distribution lists, co-owners, customers, employees, vendors
and jobs from a YAML seed file into the book.

The whole file is validated first; nothing is imported when any entry is
invalid. A missing XML book is created.

Example:
  bizbook import seed.yaml
  bizbook import --dry-run seed.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate the seed file without changing the book")
}

func runImport(cmd *cobra.Command, args []string) {
	cfg, resolver := loadConfig()

	slog.Info("Reading seed file", "path", args[0])
	f, err := seed.Load(args[0])
	exitOnError(err, "failed to read seed file")

	s := openSession(cfg.Book.Backend, resolver, true)
	defer s.Close()

	if importDryRun {
		exitOnError(f.Validate(s.Book()), "seed file is invalid")
		fmt.Println("Seed file is valid (dry-run, nothing imported)")
		return
	}

	res, err := seed.Import(s.Book(), f)
	exitOnError(err, "failed to import seed file")
	exitOnError(s.Save(), "failed to save book")

	fmt.Println("\n=== Import Summary ===")
	fmt.Printf("Distribution lists: %d\n", res.DistribLists)
	fmt.Printf("Co-owners:          %d\n", res.CoOwners)
	fmt.Printf("Customers:          %d\n", res.Customers)
	fmt.Printf("Employees:          %d\n", res.Employees)
	fmt.Printf("Vendors:            %d\n", res.Vendors)
	fmt.Printf("Jobs:               %d\n", res.Jobs)
	fmt.Println()

	slog.Info("Import completed", "records", res.Total(), "path", s.Path())
}
