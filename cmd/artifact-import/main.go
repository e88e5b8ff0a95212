// Command artifact-import stores a classifier artifact file in the artifact
// repository, or lists the versions already stored.
//
// Usage:
//
//	artifact-import -file models/dry-eye-sample.json
//	artifact-import -list dry-eye
//
// The repository is selected by the same IRIS_CONFIG file and IRIS_DB_* /
// IRIS_SQLITE_PATH variables the server reads.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/healthcatchers/iris/internal/domain"
	"github.com/healthcatchers/iris/internal/repository"
)

func main() {
	file := flag.String("file", "", "Path to a classifier artifact to import")
	list := flag.String("list", "", "List stored versions of the named artifact")
	flag.Parse()

	if *file == "" && *list == "" {
		fmt.Println("Usage: artifact-import -file /path/to/artifact.json | -list name")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(*file, *list); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(file, list string) error {
	cfg, err := domain.LoadConfig(os.Getenv("IRIS_CONFIG"), os.Getenv)
	if err != nil {
		return err
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if file != "" {
		info, err := repository.ImportFile(ctx, repo, file)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Imported %s@%s (%d trees, %d features)\n", info.Name, info.Version, info.Trees, info.FeatureCount)
		fmt.Printf("  Checksum: %s\n", info.Checksum)
		if list == "" {
			return nil
		}
	}

	artifacts, err := repo.ListArtifacts(ctx, list)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		fmt.Printf("No versions stored for %s\n", list)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tCREATED\tCHECKSUM")
	for _, a := range artifacts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.Version, a.CreatedAt.Format(time.RFC3339), a.Checksum[:12])
	}
	return w.Flush()
}
