package wallet

import (
	"sync"

	"wallet-ledger-go/portfolio"
)

// Publisher 快照分发器。每个订阅者只保留最新一份快照，慢消费者不会阻塞发布方。
type Publisher struct {
	mu   sync.Mutex
	subs map[chan portfolio.Snapshot]struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[chan portfolio.Snapshot]struct{})}
}

func (p *Publisher) Subscribe() <-chan portfolio.Snapshot {
	ch := make(chan portfolio.Snapshot, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	return ch
}

// Unsubscribe 移除并关闭订阅通道，重复调用无副作用。
func (p *Publisher) Unsubscribe(sub <-chan portfolio.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		if ch == sub {
			delete(p.subs, ch)
			close(ch)
			return
		}
	}
}

func (p *Publisher) Publish(s portfolio.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- s:
		default:
			// 丢弃旧快照，保留最新
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Subscribers 当前订阅数。
func (p *Publisher) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
