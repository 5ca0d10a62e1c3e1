package realtime

import (
	"sync"
)

// 订阅主题，对应四个实时集合
const (
	TopicCandidates = "candidates"
	TopicActivity   = "activity"
	TopicSettings   = "settings"
	TopicVoters     = "voters"
)

const subscriptionBuffer = 16

// Notice 变更通知，订阅方收到后自行拉取最新集合
type Notice struct {
	Topic string
}

// Subscription 由调用方持有的订阅句柄，用完必须Close
type Subscription struct {
	C      chan Notice
	topics map[string]struct{}
	broker *Broker
	once   sync.Once
}

// Close 注销订阅并关闭通道，可以安全地重复调用
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.unsubscribe(s)
		close(s.C)
	})
}

func (s *Subscription) wants(topic string) bool {
	_, ok := s.topics[topic]
	return ok
}

// Broker 进程内的变更通知中枢
// Kafka消费者把跨实例事件灌进来，API层的订阅从这里取通知
type Broker struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe 创建订阅句柄，不传主题表示订阅全部
func (b *Broker) Subscribe(topics ...string) *Subscription {
	sub := &Subscription{
		C:      make(chan Notice, subscriptionBuffer),
		topics: make(map[string]struct{}, len(topics)),
		broker: b,
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Publish 把变更通知发给所有关心该主题的订阅
// 订阅方消费不及时则丢弃本条，订阅方随后的拉取总能拿到最新快照
func (b *Broker) Publish(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		if len(sub.topics) > 0 && !sub.wants(topic) {
			continue
		}
		select {
		case sub.C <- Notice{Topic: topic}:
		default:
		}
	}
}

// SubscriberCount 当前订阅数
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}
