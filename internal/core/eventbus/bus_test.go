package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

type testEvent struct {
	Value int
}

type otherEvent struct{}

func receive(t *testing.T, sub *Subscription) interface{} {
	t.Helper()
	select {
	case evt := <-sub.Out():
		return evt
	case <-time.After(time.Second):
		t.Fatal("未收到事件")
		return nil
	}
}

func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus()

	sub1, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	defer sub1.Close()
	sub2, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	defer sub2.Close()

	other, err := bus.Subscribe(new(otherEvent))
	require.NoError(t, err)
	defer other.Close()

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(testEvent{Value: 42}))

	assert.Equal(t, testEvent{Value: 42}, receive(t, sub1))
	assert.Equal(t, testEvent{Value: 42}, receive(t, sub2))
	assert.Empty(t, other.Out(), "其他类型的订阅者收不到")
}

func TestBus_InvalidTypes(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)
	_, err = bus.Subscribe(testEvent{})
	assert.ErrorIs(t, err, ErrNonPointerType)
	_, err = bus.Emitter(testEvent{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	assert.ErrorIs(t, em.Emit(otherEvent{}), ErrInvalidEventType)
	assert.ErrorIs(t, em.Emit(&testEvent{}), ErrInvalidEventType, "发射值而不是指针")

	require.NoError(t, em.Close())
	require.NoError(t, em.Close())
	assert.ErrorIs(t, em.Emit(testEvent{}), ErrClosed)
}

func TestBus_SlowConsumerDoesNotBlock(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent), BufSize(1))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	defer em.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, em.Emit(testEvent{Value: i}))
	}
	assert.Len(t, sub.Out(), 1)
	assert.Equal(t, testEvent{Value: 0}, receive(t, sub))
}

func TestBus_CloseRemovesNode(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	assert.Equal(t, 1, nodeCount(bus))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, ok := <-sub.Out()
	assert.False(t, ok, "关闭后通道被关闭")

	require.NoError(t, em.Close())
	assert.Zero(t, nodeCount(bus), "没有订阅者和发射器时删除节点")
}

func TestBus_ConcurrentEmitAndClose(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	defer em.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, err := bus.Subscribe(new(testEvent), BufSize(4))
			if err != nil {
				return
			}
			_ = sub.Close()
		}()
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = em.Emit(testEvent{Value: i*100 + j})
			}
		}(i)
	}
	wg.Wait()
}

func TestModule(t *testing.T) {
	var bus *Bus
	app := fxtest.New(t, Module, fx.Populate(&bus))
	app.RequireStart()
	defer app.RequireStop()
	require.NotNil(t, bus)
}

func nodeCount(b *Bus) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.nodes)
}
