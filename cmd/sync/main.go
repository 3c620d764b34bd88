package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basit/filevault-backend/config"
	"github.com/basit/filevault-backend/files"
	"github.com/basit/filevault-backend/initializers"
	"github.com/basit/filevault-backend/repository"
)

var (
	truncate  bool
	force     bool
	chunkSize int
)

func main() {
	cmd := &cobra.Command{
		Use:          "sync",
		Short:        "Backfill file metadata records from the storage backend",
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().BoolVarP(&truncate, "truncate", "t", false, "truncate files and fileables tables before syncing")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "sync even in production without confirmation")
	cmd.Flags().IntVarP(&chunkSize, "chunk", "c", files.DefaultChunkSize, "number of records to insert per batch")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.IsProduction() && !force {
		fmt.Println("PRODUCTION mode detected.")
		if !confirm("Continue syncing even in PRODUCTION?") {
			return fmt.Errorf("aborted")
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := initializers.ConnectToDatabase(cfg)
	if err != nil {
		return err
	}
	disks, err := initializers.InitDisks(ctx, cfg)
	if err != nil {
		return err
	}
	repo := repository.New(db)
	service, err := files.NewService(cfg, disks, repo, logger)
	if err != nil {
		return err
	}

	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 && truncate {
		fmt.Println("Truncating files and fileables tables...")
		if err := repo.TruncateAll(ctx); err != nil {
			return err
		}
	}

	fmt.Println("Syncing public files...")
	if err := syncVisibility(ctx, service, true); err != nil {
		return err
	}

	fmt.Println("Syncing private files...")
	return syncVisibility(ctx, service, false)
}

func syncVisibility(ctx context.Context, service *files.Service, isPublic bool) error {
	reports, err := service.Sync(ctx, isPublic, chunkSize)
	if err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Printf("(Chunk %d/%d) Created records: %d/%d\n", r.Chunk, r.Chunks, r.Inserted, r.Attempted)
	}
	if len(reports) == 0 {
		fmt.Println("Nothing to sync.")
	}
	return nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
