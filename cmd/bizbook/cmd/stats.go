package cmd

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bizbook/pkg/db"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display book statistics",
	Long: `Display statistics about the book.

Shows:
- Number of live records per type
- Number of stored records per type (SQLite and bolt)
- Table versions and last save time (SQLite)

Example:
  bizbook stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")
	cfg, resolver := loadConfig()

	s := openSession(cfg.Book.Backend, resolver, false)
	defer s.Close()

	counts := s.Counts()
	stored, err := s.StoredCounts()
	exitOnError(err, "failed to count stored records")

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	for name := range stored {
		if _, ok := counts[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	fmt.Println("\n=== Book Statistics ===")
	fmt.Printf("Backend: %s\n", s.Kind())
	fmt.Printf("Path:    %s\n", s.Path())
	fmt.Printf("GUID:    %s\n\n", s.Book().GUID())
	for _, name := range names {
		if stored != nil {
			fmt.Printf("%-20s %6d live %6d stored\n", name, counts[name], stored[name])
		} else {
			fmt.Printf("%-20s %6d live\n", name, counts[name])
		}
	}

	if conn := s.DB(); conn != nil {
		versions, err := db.TableVersions(conn)
		exitOnError(err, "failed to read table versions")
		tables := make([]string, 0, len(versions))
		for table := range versions {
			tables = append(tables, table)
		}
		sort.Strings(tables)

		fmt.Println("\nTable versions:")
		for _, table := range tables {
			fmt.Printf("  %-20s %d\n", table, versions[table])
		}

		savedAt, err := db.GetMetadata(conn, db.MetaSavedAt)
		exitOnError(err, "failed to read metadata")
		if savedAt == "" {
			savedAt = "(never)"
		}
		fmt.Printf("\nLast save: %s\n", savedAt)
	}
	fmt.Println()

	slog.Info("Statistics displayed successfully")
}
