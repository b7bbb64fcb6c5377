package eventbus_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jacksonlee411/orghierarchy/pkg/eventbus"
)

type orgImported struct {
	OriginID string
}

func TestEventPublisher_PublishSubscribe(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	var got []string
	bus.Subscribe(func(e orgImported) {
		got = append(got, e.OriginID)
	})
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Publish(orgImported{OriginID: "abc:123"})
	bus.Publish(orgImported{OriginID: "abc:456"})

	require.Equal(t, []string{"abc:123", "abc:456"}, got)
}

func TestEventPublisher_SignatureMismatch(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	called := false
	bus.Subscribe(func(e orgImported) {
		called = true
	})

	bus.Publish("not-an-event")
	require.False(t, called)
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	handler := func(e orgImported) {}
	bus.Subscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Unsubscribe(handler)
	require.Equal(t, 0, bus.SubscribersCount())
}

func TestEventPublisher_HandlerPanicDoesNotPropagate(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	bus.Subscribe(func(e orgImported) {
		panic("boom")
	})

	require.NotPanics(t, func() {
		bus.Publish(orgImported{OriginID: "abc:123"})
	})
}

func TestMatchSignature(t *testing.T) {
	handler := func(e orgImported) {}

	require.True(t, eventbus.MatchSignature(handler, []interface{}{orgImported{}}))
	require.False(t, eventbus.MatchSignature(handler, []interface{}{"string"}))
	require.False(t, eventbus.MatchSignature(handler, []interface{}{orgImported{}, 1}))
	require.False(t, eventbus.MatchSignature("not-a-func", []interface{}{orgImported{}}))
}
