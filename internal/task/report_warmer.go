package task

import (
	"context"
	"quiz_arena_backend/pkg/logger"
	"time"

	"github.com/jasonlvhit/gocron"
	"go.uber.org/zap"
)

// ReportWarmer 定时任务依赖的报告服务接口
type ReportWarmer interface {
	WarmActive(ctx context.Context) (int, error)
}

// Scheduler 定时刷新进行中测验的缓存报告，避免在请求中计算
type Scheduler struct {
	Warmer   ReportWarmer
	Interval time.Duration
	Timeout  time.Duration

	cron    *gocron.Scheduler
	stopped chan bool
}

func NewScheduler(warmer ReportWarmer, interval time.Duration) *Scheduler {
	return &Scheduler{
		Warmer:   warmer,
		Interval: interval,
		Timeout:  30 * time.Second,
	}
}

// WarmReports 执行一次预热
func (s *Scheduler) WarmReports() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	n, err := s.Warmer.WarmActive(ctx)
	if err != nil {
		logger.Log.Error("Report warm-up failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Log.Debug("Reports warmed", zap.Int("quizzes", n))
	}
}

// Start 启动定时预热，间隔不为正数时不启动
func (s *Scheduler) Start() error {
	seconds := uint64(s.Interval / time.Second)
	if seconds == 0 {
		logger.Log.Info("Report warm-up disabled")
		return nil
	}

	s.cron = gocron.NewScheduler()
	if err := s.cron.Every(seconds).Seconds().Do(s.WarmReports); err != nil {
		return err
	}
	s.stopped = s.cron.Start()
	logger.Log.Info("Report warm-up scheduled", zap.Duration("interval", s.Interval))
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	s.cron.Clear()
	close(s.stopped)
	s.cron = nil
}
