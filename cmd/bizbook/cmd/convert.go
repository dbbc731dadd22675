package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/bizbook/pkg/session"
)

var (
	convertTo     string
	convertOutput string
)

// convertCmd represents the convert command.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Copy the book into another storage backend",
	Long: `Load the book from the configured backend and save it into another one.

An existing destination file is copied to the backups directory first and
then replaced.

Example:
  bizbook convert --to sqlite
  bizbook --backend sqlite convert --to xml --output export.xml`,
	Run: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertTo, "to", "", "destination backend: xml, sqlite or bolt")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "destination path (default from configuration)")
	_ = convertCmd.MarkFlagRequired("to")
}

func runConvert(cmd *cobra.Command, args []string) {
	cfg, resolver := loadConfig()
	if convertTo == cfg.Book.Backend && convertOutput == "" {
		exitOnError(fmt.Errorf("source and destination are both %s", convertTo), "invalid arguments")
	}

	src := openSession(cfg.Book.Backend, resolver, false)
	defer src.Close()

	dstPath := convertOutput
	if dstPath == "" {
		var err error
		dstPath, err = resolver.GetBackendPath(convertTo)
		exitOnError(err, "failed to resolve destination path")
	}
	exitOnError(resolver.EnsureParentDir(dstPath), "failed to create destination directory")

	backup, err := resolver.Backup(dstPath, time.Now())
	exitOnError(err, "failed to back up destination")
	if backup != "" {
		slog.Info("Backed up destination", "backup", backup)
	}

	dst, err := session.Open(convertTo, dstPath)
	exitOnError(err, "failed to open destination")
	defer dst.Close()

	exitOnError(src.SaveTo(dst), "failed to convert book")

	fmt.Printf("Converted %s book %s to %s book %s\n", src.Kind(), src.Path(), dst.Kind(), dst.Path())
	slog.Info("Conversion completed", "from", src.Kind(), "to", dst.Kind())
}
