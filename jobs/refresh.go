package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/basit/filevault-backend/files"
	"github.com/basit/filevault-backend/repository"
)

// StartURLRefreshJob re-signs temporary URLs for private records whose
// cached link has lapsed, once an hour.
func StartURLRefreshJob(service *files.Service, repo *repository.Repository, log *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for range ticker.C {
			refreshExpiredURLs(service, repo, log)
		}
	}()
}

func refreshExpiredURLs(service *files.Service, repo *repository.Repository, log *zap.Logger) {
	ctx := context.Background()

	expired, err := repo.ExpiredPrivate(ctx, time.Now())
	if err != nil {
		log.Error("finding expired private urls failed", zap.Error(err))
		return
	}

	for i := range expired {
		record := &expired[i]
		if err := service.RefreshURL(ctx, record); err != nil {
			log.Error("url refresh failed", zap.String("path", record.Path), zap.Error(err))
			continue
		}
		if err := repo.Save(ctx, record); err != nil {
			log.Error("saving refreshed record failed", zap.String("path", record.Path), zap.Error(err))
		}
	}

	if len(expired) > 0 {
		log.Info("refreshed expired private urls", zap.Int("count", len(expired)))
	}
}
