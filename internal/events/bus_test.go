package events

import (
	"testing"
	"time"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/logger"
)

func TestBus_PublishFanOut(t *testing.T) {
	bus := NewBus(logger.Nop())
	defer bus.Close()

	sub1 := bus.Subscribe(4)
	sub2 := bus.Subscribe(4)

	bus.Publish(contracts.Event{Type: "tournament_update", Data: "x"})

	for i, sub := range []<-chan contracts.Event{sub1, sub2} {
		select {
		case e := <-sub:
			if e.Type != "tournament_update" {
				t.Errorf("sub%d type = %s", i+1, e.Type)
			}
			if e.Timestamp.IsZero() {
				t.Errorf("sub%d timestamp not stamped", i+1)
			}
		case <-time.After(time.Second):
			t.Fatalf("sub%d did not receive", i+1)
		}
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(logger.Nop())
	defer bus.Close()

	bus.Subscribe(1) // 버퍼 1, 소비자 없음

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(contracts.Event{Type: "risk_alert"})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
}

func TestBus_CloseClosesSubscribers(t *testing.T) {
	bus := NewBus(logger.Nop())
	sub := bus.Subscribe(1)

	bus.Close()

	if _, open := <-sub; open {
		t.Error("subscriber channel must be closed")
	}

	// 닫힌 뒤 발행/구독은 무해해야 함
	bus.Publish(contracts.Event{Type: "x"})
	if _, open := <-bus.Subscribe(1); open {
		t.Error("post-close subscription must be closed immediately")
	}
}
