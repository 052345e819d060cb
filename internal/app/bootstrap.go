package app

import (
	"errors"

	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/metrics"
	"github.com/freightbid/internal/provider"
	"github.com/freightbid/internal/router"
	"github.com/freightbid/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	switch mode {
	case ModeAll, ModeAPI, ModeWorker:
	default:
		return nil, errors.New("unknown mode: " + mode)
	}

	metrics.Register()
	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))

		// 跨实例事件只在对外推送的进程里订阅
		if container.EventRelay != nil {
			services = append(services, NewRelayService(container.EventRelay))
		}
	}

	// 初始化 Worker 服务，队列未启用时退化为进程内扫描
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(cfg, consumer)
			if err != nil {
				container.Close()
				return nil, err
			}
			services = append(services, workerService)
		} else {
			services = append(services, worker.NewSweepService(consumer, cfg.Auction.SweepInterval()))
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
