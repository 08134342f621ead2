package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"subgraphd/internal/domain"
)

func TestChannel_TakeOnce(t *testing.T) {
	ch := NewChannel(4)

	stream, ok := ch.Take()
	require.True(t, ok)
	require.NotNil(t, stream)

	again, ok := ch.Take()
	require.False(t, ok)
	require.Nil(t, again)
}

func TestChannel_PreservesEmissionOrder(t *testing.T) {
	ch := NewChannel(8)

	ch.Emit(domain.LifecycleEvent{Kind: domain.EventStart, Deployment: "QmA"})
	ch.Emit(domain.LifecycleEvent{Kind: domain.EventStart, Deployment: "QmB"})
	ch.Emit(domain.LifecycleEvent{Kind: domain.EventStop, Deployment: "QmA"})

	stream, ok := ch.Take()
	require.True(t, ok)

	first := <-stream
	require.Equal(t, domain.EventStart, first.Kind)
	require.Equal(t, domain.DeploymentID("QmA"), first.Deployment)

	second := <-stream
	require.Equal(t, domain.DeploymentID("QmB"), second.Deployment)

	third := <-stream
	require.Equal(t, domain.EventStop, third.Kind)
	require.Equal(t, domain.DeploymentID("QmA"), third.Deployment)
}

func TestChannel_FullBufferBlocksProducer(t *testing.T) {
	ch := NewChannel(1)
	ch.Emit(domain.LifecycleEvent{Kind: domain.EventStart, Deployment: "QmA"})

	emitted := make(chan struct{})
	go func() {
		ch.Emit(domain.LifecycleEvent{Kind: domain.EventStart, Deployment: "QmB"})
		close(emitted)
	}()

	select {
	case <-emitted:
		t.Fatal("emit returned while buffer was full")
	case <-time.After(50 * time.Millisecond):
	}

	stream, ok := ch.Take()
	require.True(t, ok)
	<-stream

	select {
	case <-emitted:
	case <-time.After(2 * time.Second):
		t.Fatal("emit did not unblock after consumer drained")
	}
}

func TestChannel_EmitAfterClosePanics(t *testing.T) {
	ch := NewChannel(1)
	ch.Close()

	require.Panics(t, func() {
		ch.Emit(domain.LifecycleEvent{Kind: domain.EventStart, Deployment: "QmA"})
	})
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	ch := NewChannel(1)
	require.NotPanics(t, func() {
		ch.Close()
		ch.Close()
	})
}

func TestChannel_CloseEndsStream(t *testing.T) {
	ch := NewChannel(2)
	ch.Emit(domain.LifecycleEvent{Kind: domain.EventStart, Deployment: "QmA"})
	ch.Close()

	stream, ok := ch.Take()
	require.True(t, ok)

	ev, open := <-stream
	require.True(t, open)
	require.Equal(t, domain.DeploymentID("QmA"), ev.Deployment)

	_, open = <-stream
	require.False(t, open)
}

func TestChannel_DefaultCapacity(t *testing.T) {
	ch := NewChannel(0)
	require.Equal(t, domain.DefaultEventBufferSize, cap(ch.ch))
}
