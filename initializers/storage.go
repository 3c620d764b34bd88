package initializers

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/basit/filevault-backend/config"
	"github.com/basit/filevault-backend/storage"
)

// InitDisks builds the visibility disk set for the configured driver.
func InitDisks(ctx context.Context, cfg *config.Config) (*storage.DiskSet, error) {
	var base storage.Backend

	switch cfg.Driver {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
		)
		if err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
		base = storage.NewS3(awsCfg, cfg.AWSBucket)
	case "local":
		local, err := storage.NewLocal(cfg.LocalDataDir, cfg.LocalBaseURL, cfg.LocalSecret)
		if err != nil {
			return nil, err
		}
		base = local
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}

	return storage.NewDiskSet(base, cfg.PublicDir, cfg.PrivateDir), nil
}
