package eventbus

// subscriptionSettings 订阅设置
type subscriptionSettings struct {
	buffer int
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*subscriptionSettings)

// BufSize 设置订阅缓冲区大小
func BufSize(size int) SubscriptionOpt {
	return func(s *subscriptionSettings) {
		if size > 0 {
			s.buffer = size
		}
	}
}
