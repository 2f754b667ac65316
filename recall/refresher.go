package recall

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/pkg/logging"
)

// Refresher 按 cron 表达式定期刷新 SnapshotCache。
// 交互数据由其他进程写入同一存储时使用；本进程内的写入走 SnapshotCache.Record 即可。
type Refresher struct {
	Cache    *SnapshotCache
	Schedule string // 例如 "@every 5m" 或 "*/10 * * * *"
	Timeout  time.Duration
	Logger   *zerolog.Logger

	cron *cron.Cron
}

// Start 注册定时任务并启动调度。Schedule 非法时返回错误。
func (r *Refresher) Start() error {
	log := logging.Or(r.Logger, "recall.refresher")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.Schedule, r.refresh); err != nil {
		return err
	}
	r.cron = c
	c.Start()
	log.Info().Str("schedule", r.Schedule).Msg("snapshot refresher started")
	return nil
}

// Stop 停止调度并等待正在执行的刷新结束。
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func (r *Refresher) refresh() {
	log := logging.Or(r.Logger, "recall.refresher")
	ctx := context.Background()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	snap, err := r.Cache.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("snapshot refresh failed")
		return
	}
	log.Debug().Uint64("version", snap.Version).Msg("snapshot refreshed")
}
