package jobs

import (
	"github.com/andrewpaige1/quizwhiz-api/auth"
	"github.com/robfig/cron/v3"
)

// Start schedules the background jobs and starts the scheduler. The caller
// stops it on shutdown.
func Start(schedule string, b auth.Blacklist) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddJob(schedule, NewFlushExpiredTokensJob(b)); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
