// ABOUTME: Migration utility for moving client documents between store backends
// ABOUTME: Copies one collection from a sqlite or badger store into another, with dry-run

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/config"
	"github.com/harperreed/agencycrm/docstore"

	// Registers the sqlite driver.
	_ "github.com/harperreed/agencycrm/db"
)

func main() {
	fromDriver := flag.String("from-driver", config.DefaultDriver, "Source store driver (sqlite or badger)")
	fromPath := flag.String("from-path", "", "Source store path (required)")
	toDriver := flag.String("to-driver", "badger", "Destination store driver (sqlite or badger)")
	toPath := flag.String("to-path", "", "Destination store path (required unless --dry-run)")
	collection := flag.String("collection", clients.DefaultCollection, "Collection to copy")
	dryRun := flag.Bool("dry-run", false, "Count documents without writing")
	flag.Parse()

	if *fromPath == "" {
		log.Fatal("Error: --from-path flag is required")
	}
	if *toPath == "" && !*dryRun {
		log.Fatal("Error: --to-path flag is required")
	}

	n, err := migrate(context.Background(), *fromDriver, *fromPath, *toDriver, *toPath, *collection, *dryRun)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if *dryRun {
		log.Printf("[DRY RUN] Would copy %d documents from %s", n, *collection)
		return
	}
	log.Printf("Migration completed successfully: %d documents copied", n)
}

func migrate(ctx context.Context, fromDriver, fromPath, toDriver, toPath, collection string, dryRun bool) (int, error) {
	if err := docstore.ValidateName("collection", collection); err != nil {
		return 0, err
	}

	src, err := docstore.Open(fromDriver, fromPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	if dryRun {
		return src.Count(ctx, docstore.NewQuery(collection))
	}

	if fromDriver == toDriver && fromPath == toPath {
		return 0, fmt.Errorf("source and destination are the same store")
	}

	dst, err := docstore.Open(toDriver, toPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open destination: %w", err)
	}
	defer func() { _ = dst.Close() }()

	return docstore.CopyCollection(ctx, src, dst, collection)
}
