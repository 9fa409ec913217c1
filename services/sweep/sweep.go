package sweepsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/lesson"
)

const sweepTimeout = 4 * time.Minute

// Sweeper periodically reconciles every in-session lesson so presence signals
// are committed even when nobody calls the reconciliation endpoint. Overlapping
// runs are skipped rather than queued.
type Sweeper struct {
	cron      *cron.Cron
	lessonSvc lesson.ServiceInterface
	logger    core.Logger
}

func NewSweeper(lessonSvc lesson.ServiceInterface, logger core.Logger) *Sweeper {
	return &Sweeper{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		lessonSvc: lessonSvc,
		logger:    logger,
	}
}

func (s *Sweeper) Start(interval time.Duration) error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := s.lessonSvc.SweepInSession(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("sweeping in-session lessons: %v", err), err)
	}
}
