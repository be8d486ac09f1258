package constants

import "time"

const (
	DefaultAcquireTimeout = 10 * time.Second
	DefaultShareTimeout   = 15 * time.Second
	DefaultStreamID       = "ling-meet"
)

const (
	// 事件总线默认值
	DefaultEventQueueSize = 256
	DefaultEventWorkers   = 1
)

const (
	// 质量样本在注册表中的保鲜时间
	DefaultQualitySampleTTL = 30 * time.Second
	// 最近移除参与者缓存大小，用于丢弃迟到事件
	DefaultRemovedCacheSize = 128
)

// Default Value: 10s
const ENV_ACQUIRE_TIMEOUT = "ACQUIRE_TIMEOUT"

// Default Value: 15s
const ENV_SHARE_TIMEOUT = "SHARE_TIMEOUT"

// Default Value: 256
const ENV_EVENT_QUEUE_SIZE = "EVENT_QUEUE_SIZE"

// Default Value: 1
const ENV_EVENT_WORKERS = "EVENT_WORKERS"

// Default Value: 30s
const ENV_QUALITY_SAMPLE_TTL = "QUALITY_SAMPLE_TTL"

// Signal transport
const ENV_SIGNAL_URL = "SIGNAL_URL"
const ENV_SIGNAL_RECONNECT_DELAY = "SIGNAL_RECONNECT_DELAY"
