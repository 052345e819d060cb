package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freightbid/internal/config"
	"github.com/freightbid/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 资金相关任务队列
	CriticalQueue = constants.QueueCritical
	// LowQueue 通知类任务队列
	LowQueue = constants.QueueLow
)

// Client 队列客户端封装
type Client struct {
	client  *asynq.Client
	enabled bool
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false}, nil
	}
	return &Client{
		client:  asynq.NewClient(buildRedisOpt(cfg)),
		enabled: true,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueAuctionExpire 在截标时间点投递到期检查，同一截标时间只投递一次
func (c *Client) EnqueueAuctionExpire(payload AuctionExpirePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewAuctionExpireTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task,
		asynq.Queue(DefaultQueue),
		asynq.ProcessIn(delay),
		asynq.TaskID(expireTaskID(payload)),
		asynq.Retention(time.Hour),
	)
}

// EnqueueAuctionSettle 推送结算任务
func (c *Client) EnqueueAuctionSettle(payload AuctionSettlePayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewAuctionSettleTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task,
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(10),
		asynq.TaskID(settleTaskID(payload)),
		asynq.Retention(24*time.Hour),
	)
}

// EnqueueAuctionNotify 推送事件通知任务
func (c *Client) EnqueueAuctionNotify(payload AuctionNotifyPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewAuctionNotifyTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, asynq.Queue(LowQueue), asynq.MaxRetry(3))
}

func (c *Client) enqueue(task *asynq.Task, opts ...asynq.Option) error {
	_, err := c.client.Enqueue(task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 6, DefaultQueue: 3, LowQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
