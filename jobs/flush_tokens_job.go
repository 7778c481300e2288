package jobs

import (
	"context"
	"time"

	"github.com/andrewpaige1/quizwhiz-api/auth"
	"github.com/andrewpaige1/quizwhiz-api/logger"
)

const flushTimeout = 30 * time.Second

// FlushExpiredTokensJob drops blacklist entries whose tokens have expired.
type FlushExpiredTokensJob struct {
	blacklist auth.Blacklist
	now       func() time.Time
}

// NewFlushExpiredTokensJob creates a new flush job for b
func NewFlushExpiredTokensJob(b auth.Blacklist) *FlushExpiredTokensJob {
	return &FlushExpiredTokensJob{blacklist: b, now: time.Now}
}

// Run flushes expired entries
func (j *FlushExpiredTokensJob) Run() {
	logger.Debug("Flush expired tokens job started")

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	removed, err := j.blacklist.Flush(ctx, j.now())
	if err != nil {
		logger.Warning("Failed to flush expired tokens:", err)
		return
	}
	logger.Debugf("Flush expired tokens completed (removed: %d)", removed)
}
