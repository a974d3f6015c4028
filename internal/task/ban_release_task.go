package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BanReleaser 解除到期封禁
type BanReleaser interface {
	LiftExpiredBans(ctx context.Context) (int64, error)
}

// LimiterSweeper 清理空闲的限流桶
type LimiterSweeper interface {
	Sweep() int
}

// BanReleaseTask 定时解除到期的临时封禁，并顺带清理限流器
type BanReleaseTask struct {
	releaser BanReleaser
	sweeper  LimiterSweeper
	spec     string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewBanReleaseTask(releaser BanReleaser, sweeper LimiterSweeper, spec string, logger *zap.Logger) *BanReleaseTask {
	return &BanReleaseTask{
		releaser: releaser,
		sweeper:  sweeper,
		spec:     spec,
		timeout:  time.Minute,
		cron:     cron.New(cron.WithSeconds()), // 支持秒级控制
		logger:   logger.Named("task.ban_release"),
	}
}

// Start 注册并启动定时任务
func (t *BanReleaseTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, t.runOnce); err != nil {
		return err
	}
	t.cron.Start()
	t.logger.Info("封禁到期检查任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (t *BanReleaseTask) Stop() {
	<-t.cron.Stop().Done()
	t.logger.Info("封禁到期检查任务已停止")
}

func (t *BanReleaseTask) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	t.Run(ctx)
}

// Run 执行一次检查
func (t *BanReleaseTask) Run(ctx context.Context) {
	n, err := t.releaser.LiftExpiredBans(ctx)
	if err != nil {
		t.logger.Error("解除到期封禁失败", zap.Error(err))
	} else if n > 0 {
		t.logger.Info("解除到期封禁", zap.Int64("count", n))
	}

	if t.sweeper != nil {
		if removed := t.sweeper.Sweep(); removed > 0 {
			t.logger.Debug("清理空闲限流桶", zap.Int("count", removed))
		}
	}
}
