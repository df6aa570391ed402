// ABOUTME: CLI commands for backing up clients to Charm KV
// ABOUTME: push, pull, status and auto-sync toggling; SSH key auth is handled by charm

package charm

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/harperreed/agencycrm/docstore"
)

func openClient() (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	return c, nil
}

// BackupPushCommand uploads the collection to Charm KV.
func BackupPushCommand(ctx context.Context, store docstore.Store, collection string, args []string) error {
	fs := flag.NewFlagSet("backup push", flag.ExitOnError)
	_ = fs.Parse(args)

	c, err := openClient()
	if err != nil {
		return err
	}

	res, err := Push(ctx, c, store, collection)
	if err != nil {
		return err
	}
	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("✓ Backed up %d clients to %s\n", res.Written, c.Config().Host)
	if res.Removed > 0 {
		fmt.Printf("  Removed %d stale backups\n", res.Removed)
	}
	if err := c.Config().RecordPush(collection, time.Now()); err != nil {
		fmt.Printf("  Warning: failed to record push time: %v\n", err)
	}
	return nil
}

// BackupPullCommand restores the collection from Charm KV.
func BackupPullCommand(ctx context.Context, store docstore.Store, collection string, args []string) error {
	fs := flag.NewFlagSet("backup pull", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Overwrite local clients with the backup")
	_ = fs.Parse(args)

	if !*confirm {
		fmt.Println("WARNING: This overwrites local clients that share an ID with the backup.")
		fmt.Println()
		fmt.Println("To confirm, run:")
		fmt.Println("  agencycrm backup pull --confirm")
		return nil
	}

	c, err := openClient()
	if err != nil {
		return err
	}
	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	res, err := Pull(ctx, c, store, collection)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Restored %d clients from %s\n", res.Written, c.Config().Host)
	return nil
}

// BackupStatusCommand shows the backup target and how many clients it holds.
func BackupStatusCommand(collection string, args []string) error {
	fs := flag.NewFlagSet("backup status", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Charm Backup Status")
	fmt.Println("───────────────────")
	fmt.Printf("Server:    %s\n", cfg.Host)
	fmt.Printf("Auto-sync: %v\n", cfg.AutoSync)
	if last, ok := cfg.LastPush[collection]; ok {
		fmt.Printf("Last push: %s\n", last.Local().Format(time.RFC3339))
	} else {
		fmt.Println("Last push: never")
	}
	if cfg.Stale(collection, time.Now()) {
		fmt.Printf("Backup is older than %s, run: agencycrm backup push\n", cfg.StaleThreshold)
	}

	c, err := NewClient(cfg)
	if err != nil {
		fmt.Println("\nStatus: Not connected")
		return nil //nolint:nilerr // not connected is a state, not a failure
	}

	id, err := c.ID()
	if err != nil {
		fmt.Println("\nStatus: Connected (ID unavailable)")
	} else {
		fmt.Println("\nStatus: Connected to Charm Cloud")
		fmt.Printf("ID:        %s\n", id)
	}

	if n, err := Count(c, collection); err == nil {
		fmt.Printf("Clients:   %d\n", n)
	}
	return nil
}

// SetAutoSyncCommand enables or disables auto-sync.
func SetAutoSyncCommand(args []string) error {
	fs := flag.NewFlagSet("backup auto", flag.ExitOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	_ = fs.Parse(args)

	if !*enable && !*disable {
		fmt.Println("Usage: agencycrm backup auto --enable|--disable")
		return nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.SetAutoSync(*enable); err != nil {
		return fmt.Errorf("failed to update auto-sync: %w", err)
	}
	if *enable {
		fmt.Println("✓ Auto-sync enabled")
	} else {
		fmt.Println("✓ Auto-sync disabled")
	}
	return nil
}
