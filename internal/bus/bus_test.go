package bus

import (
	"testing"
	"time"
)

func TestBus_SubscribePublish(t *testing.T) {
	b := New()
	defer b.Close()

	ch := b.Subscribe(TopicTaskSubmitted, 4)

	b.Publish(TopicTaskSubmitted, Event{Type: TopicTaskSubmitted, TaskID: "task-1"})

	select {
	case ev := <-ch:
		if ev.TaskID != "task-1" {
			t.Errorf("received TaskID = %q, want %q", ev.TaskID, "task-1")
		}
		if ev.Timestamp.IsZero() {
			t.Error("Publish should stamp a zero Timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive published event")
	}
}

func TestBus_TopicIsolation(t *testing.T) {
	b := New()
	defer b.Close()

	completed := b.Subscribe(TopicTaskCompleted, 4)

	b.Publish(TopicTaskFailed, Event{Type: TopicTaskFailed, TaskID: "task-1"})

	select {
	case ev := <-completed:
		t.Errorf("subscriber to %q received event for %q", TopicTaskCompleted, ev.Type)
	case <-time.After(50 * time.Millisecond):
		// expected: nothing delivered
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	b := New()
	defer b.Close()

	all := b.SubscribeAll(8)

	topics := []string{TopicTaskSubmitted, TopicTaskStarted, AgentTopic("agent-1")}
	for _, topic := range topics {
		b.Publish(topic, Event{Type: topic})
	}

	for i, topic := range topics {
		select {
		case ev := <-all:
			if ev.Type != topic {
				t.Errorf("event %d: Type = %q, want %q", i, ev.Type, topic)
			}
		case <-time.After(time.Second):
			t.Fatalf("SubscribeAll missed event %d (%s)", i, topic)
		}
	}
}

func TestBus_PublishDoesNotBlock(t *testing.T) {
	b := New()
	defer b.Close()

	// One-slot buffer that nobody drains.
	b.Subscribe(TopicTaskProgress, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			b.Publish(TopicTaskProgress, Event{Type: TopicTaskProgress, Progress: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if got := b.Dropped(); got != 19 {
		t.Errorf("Dropped() = %d, want 19", got)
	}
}

func TestBus_CloseIdempotent(t *testing.T) {
	b := New()
	ch := b.Subscribe(TopicTaskSubmitted, 1)

	b.Close()
	b.Close() // must not panic

	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed after Close")
	}

	// Publishing after close is a silent no-op.
	b.Publish(TopicTaskSubmitted, Event{Type: TopicTaskSubmitted})
}

func TestBus_SubscribeAfterClose(t *testing.T) {
	b := New()
	b.Close()

	ch := b.Subscribe(TopicTaskSubmitted, 1)
	if _, ok := <-ch; ok {
		t.Error("Subscribe after Close should return a closed channel")
	}
}

func TestAgentTopic(t *testing.T) {
	if got := AgentTopic("worker-7"); got != "agent:worker-7" {
		t.Errorf("AgentTopic(%q) = %q, want %q", "worker-7", got, "agent:worker-7")
	}
}

func TestBus_FanOut(t *testing.T) {
	b := New()
	defer b.Close()

	var chans []<-chan Event
	for i := 0; i < 3; i++ {
		chans = append(chans, b.Subscribe(TopicTaskCompleted, 2))
	}

	b.Publish(TopicTaskCompleted, Event{Type: TopicTaskCompleted, TaskID: "task-9"})

	for i, ch := range chans {
		select {
		case ev := <-ch:
			if ev.TaskID != "task-9" {
				t.Errorf("subscriber %d: TaskID = %q, want %q", i, ev.TaskID, "task-9")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d missed the event", i)
		}
	}
}

func TestBus_DefaultBufSize(t *testing.T) {
	b := New()
	defer b.Close()

	ch := b.Subscribe(TopicTaskSubmitted, 0)
	if got := cap(ch); got != DefaultBufSize {
		t.Errorf("default buffer capacity = %d, want %d", got, DefaultBufSize)
	}

	ch = b.Subscribe(TopicTaskSubmitted, -5)
	if got := cap(ch); got != DefaultBufSize {
		t.Errorf("negative bufSize capacity = %d, want %d", got, DefaultBufSize)
	}
}
