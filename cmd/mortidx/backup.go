package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mortidx/mortidx/internal/rotation"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup destination management",
	Long:  "Inspect and prune the archives held in the configured backup destinations.",
}

var backupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored archives",
	Long:    "List the archives and companion files held in every backup destination.",
	RunE:    runBackupList,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy",
	Long:  "Delete archives beyond the retention count and companion files whose archive is gone, without copying anything in.",
	RunE:  runBackupPrune,
}

func init() {
	backupCmd.PersistentFlags().StringVar(&cfg.DefaultStorage, "default-storage", "", "Default storage pool name")
	backupCmd.PersistentFlags().StringArrayVar(&cfg.StorageArgs, "storage", []string{}, "Storage pool configuration (format: pool.option=value)")
	backupPruneCmd.Flags().IntVar(&cfg.RetentionCount, "retention", cfg.RetentionCount, "Archives kept per destination")
	backupPruneCmd.Flags().StringVar(&cfg.ArchiveGlob, "archive-glob", cfg.ArchiveGlob, "Archive naming pattern")

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupPruneCmd)
}

func runBackupList(cmd *cobra.Command, args []string) error {
	setupLogging()

	pools, err := buildPoolManager()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "POOL\tKEY\tSIZE\tDATE")

	total := 0
	for _, dest := range pools.All() {
		files, err := dest.Storage.List(cmd.Context(), "")
		if err != nil {
			return fmt.Errorf("pool %q: %w", dest.Name, err)
		}

		for _, f := range files {
			date := f.LastModified.Format("2006-01-02 15:04:05")
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dest.Name, f.Key, formatSize(f.Size), date)
			total++
		}
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d file(s)\n", total)
	return nil
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	setupLogging()

	pools, err := buildPoolManager()
	if err != nil {
		return err
	}

	rotator := rotation.New(pools, cfg.RetentionCount, cfg.ArchiveGlob)
	return rotator.Enforce(cmd.Context())
}
