package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"bookline/config"
	"bookline/services/queue"
	"bookline/services/scheduling"
	"bookline/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeReservationExpire = "reservation:expire"
	TypeQueueAssignSweep  = "queue:assign"
)

// InitSweepWorker runs the background sweeps: expiring stale pending
// reservations and retrying queue assignment for shops where no specialist
// was available when the head ticket arrived.
func InitSweepWorker(gate *scheduling.ReservationGate, engine *queue.Engine) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweepDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReservationExpire, handleReservationExpire(gate))
	mux.HandleFunc(TypeQueueAssignSweep, handleQueueAssignSweep(engine))

	go func() {
		log.Println("[SweepWorker] starting async worker...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("[SweepWorker] failed to start worker: %v", err)
		}
	}()

	go runScheduler(redisOpts)
}

// runScheduler enqueues the sweep tasks on the configured cadence.
func runScheduler(redisOpts asynq.RedisClientOpt) {
	interval := time.Duration(config.AppConfig.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Minute
	}
	spec := fmt.Sprintf("@every %s", interval)

	scheduler := asynq.NewScheduler(redisOpts, nil)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeReservationExpire, nil)); err != nil {
		log.Fatalf("[SweepWorker] failed to register expiry sweep: %v", err)
	}
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeQueueAssignSweep, nil)); err != nil {
		log.Fatalf("[SweepWorker] failed to register assignment sweep: %v", err)
	}
	if err := scheduler.Run(); err != nil {
		log.Fatalf("[SweepWorker] scheduler stopped: %v", err)
	}
}

func handleReservationExpire(gate *scheduling.ReservationGate) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		released, err := gate.ReleaseExpired(ctx)
		if err != nil {
			utils.GetLogger().Error("sweep: reservation expiry failed", zap.Error(err))
			return err
		}
		if released > 0 {
			utils.GetLogger().Debug("sweep: reservations released", zap.Int("count", released))
		}
		return nil
	}
}

func handleQueueAssignSweep(engine *queue.Engine) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		for _, shopID := range engine.ShopIDs() {
			if err := engine.AssignNext(ctx, shopID); err != nil {
				utils.GetLogger().Warn("sweep: assignment retry failed",
					zap.String("shopID", shopID), zap.Error(err))
			}
		}
		return nil
	}
}
