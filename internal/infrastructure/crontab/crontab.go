package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/infrastructure/metrics"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

const (
	DefaultGaugeRefreshSchedule = "* * * * *"
	CronJobTimeout              = time.Minute // Timeout for each cron job execution
)

// OpenCaseCounter and OverdueCounter are satisfied by the ticket and commitment services.
type OpenCaseCounter interface {
	CountOpen(ctx context.Context) (int64, error)
}

type OverdueCounter interface {
	CountOverdue(ctx context.Context) (int64, error)
}

// Crontab refreshes the backlog gauges on a schedule.
type Crontab struct {
	ctab        *crontab.Crontab
	schedule    string
	cases       OpenCaseCounter
	commitments OverdueCounter
	log         zerolog.Logger
}

func NewCrontab(schedule string, cases OpenCaseCounter, commitments OverdueCounter, log zerolog.Logger) *Crontab {
	if schedule == "" {
		schedule = DefaultGaugeRefreshSchedule
	}
	return &Crontab{
		ctab:        crontab.New(),
		schedule:    schedule,
		cases:       cases,
		commitments: commitments,
		log:         log.With().Str("component", "crontab").Logger(),
	}
}

// Run refreshes once, schedules the job and blocks until ctx is done.
func (c *Crontab) Run(ctx context.Context) error {
	// execute once on server start
	c.RefreshGauges(ctx)

	if err := c.ctab.AddJob(c.schedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.RefreshGauges(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add gauge refresh job")
	}
	c.log.Info().Str("schedule", c.schedule).Msg("gauge refresh scheduled")

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) RefreshGauges(ctx context.Context) {
	if c.cases != nil {
		n, err := c.cases.CountOpen(ctx)
		if err != nil {
			c.log.Error().Err(err).Msg("failed to count open cases")
		} else {
			metrics.SetOpenCases(n)
		}
	}
	if c.commitments != nil {
		n, err := c.commitments.CountOverdue(ctx)
		if err != nil {
			c.log.Error().Err(err).Msg("failed to count overdue commitments")
		} else {
			metrics.SetOverdueCommitments(n)
		}
	}
}
