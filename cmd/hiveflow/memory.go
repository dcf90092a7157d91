package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hiveworks/hiveflow/internal/memory"
)

var memoryTTL time.Duration

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Query the collective memory store",
	Long: `Inspect and edit the hive's collective memory.

Completed task results are archived under the "task-results" namespace;
agents and operators can keep arbitrary entries in other namespaces.
Entries may carry a TTL and expire silently.`,
}

var memoryNamespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List memory namespaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMemory(false)
		if err != nil {
			return err
		}
		defer store.Close()

		namespaces, err := store.Namespaces()
		if err != nil {
			return err
		}
		if len(namespaces) == 0 {
			fmt.Println("Collective memory is empty.")
			return nil
		}
		for _, ns := range namespaces {
			fmt.Println(ns)
		}
		return nil
	},
}

var memoryListCmd = &cobra.Command{
	Use:   "list <namespace>",
	Short: "List entries in a namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMemory(false)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("No entries in namespace %q.\n", args[0])
			return nil
		}
		for _, e := range entries {
			age := formatDuration(time.Since(e.UpdatedAt))
			fmt.Printf("%s  (%s ago, read %d time(s))\n", e.Key, age, e.AccessCount)
			fmt.Printf("  %s\n", truncateLine(e.Value, 96))
		}
		return nil
	},
}

var memoryGetCmd = &cobra.Command{
	Use:   "get <namespace> <key>",
	Short: "Print one entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMemory(false)
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.Get(args[0], args[1])
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("no entry %s/%s", args[0], args[1])
		}
		fmt.Println(entry.Value)
		return nil
	},
}

var memoryPutCmd = &cobra.Command{
	Use:   "put <namespace> <key> <value>",
	Short: "Store one entry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMemory(true)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Put(args[0], args[1], args[2], memoryTTL); err != nil {
			return err
		}
		fmt.Printf("Stored %s/%s\n", args[0], args[1])
		return nil
	},
}

var memoryDeleteCmd = &cobra.Command{
	Use:   "delete <namespace> <key>",
	Short: "Delete one entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMemory(false)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s/%s\n", args[0], args[1])
		return nil
	},
}

var memoryCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge expired entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openMemory(false)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Cleanup()
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired entr%s.\n", n, pluralY(n))
		return nil
	},
}

func init() {
	memoryPutCmd.Flags().DurationVar(&memoryTTL, "ttl", 0, "Entry lifetime (0 = keep forever)")

	memoryCmd.AddCommand(memoryNamespacesCmd)
	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryGetCmd)
	memoryCmd.AddCommand(memoryPutCmd)
	memoryCmd.AddCommand(memoryDeleteCmd)
	memoryCmd.AddCommand(memoryCleanupCmd)
}

// openMemory opens the project's memory store. Read paths refuse to
// create a fresh database; put creates one on demand.
func openMemory(create bool) (*memory.Store, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dataDir, "memory.db")
	if !create {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no collective memory at %s; run 'hiveflow run' first", dbPath)
		}
	} else if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return memory.NewStore(dbPath)
}

func pluralY(n int64) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
