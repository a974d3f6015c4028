package task

import (
	"go.uber.org/zap"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台定时任务
type TaskManager struct {
	banRelease *BanReleaseTask
	logger     *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Bans    BanReleaser
	Limiter LimiterSweeper
	Logger  *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	BanReleaseEnabled bool
	BanReleaseSpec    string // 六段式 cron 表达式（含秒）
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		BanReleaseEnabled: true,
		BanReleaseSpec:    "0 */10 * * * *",
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{logger: deps.Logger.Named("task")}

	if cfg.BanReleaseEnabled && deps.Bans != nil {
		tm.banRelease = NewBanReleaseTask(deps.Bans, deps.Limiter, cfg.BanReleaseSpec, deps.Logger)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	tm.logger.Info("正在启动后台任务...")
	if tm.banRelease != nil {
		if err := tm.banRelease.Start(); err != nil {
			return err
		}
	}
	tm.logger.Info("后台任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.banRelease != nil {
		tm.banRelease.Stop()
	}
	tm.logger.Info("后台任务已全部停止")
}

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"ban_release": tm.banRelease != nil,
	}
}
