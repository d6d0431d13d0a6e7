package asset

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter 控制请求速率，避免触发行情源限流。*rate.Limiter 满足该接口。
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// NewRateLimiter 按每秒请求数与突发量构造限流器；非正值回落到 1。
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
