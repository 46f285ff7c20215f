package redis

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage"
)

func (s *Storage) PublishLobbyChange(ctx context.Context, change model.LobbyChange) error {
	return model.NewStoreError("publish lobby change", s.client.Publish(ctx, lobbyTopic(), string(change)).Err())
}

func (s *Storage) SubscribeLobbyChanges(ctx context.Context) (storage.Subscription, error) {
	ps := s.client.Subscribe(ctx, lobbyTopic())

	// Wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, model.NewStoreError("subscribe", err)
	}

	sub := &subscription{
		ps:   ps,
		out:  make(chan model.LobbyChange, 16),
		done: make(chan struct{}),
	}
	go sub.forward()
	return sub, nil
}

// subscription adapts a redis PubSub to storage.Subscription
type subscription struct {
	ps   *redis.PubSub
	out  chan model.LobbyChange
	done chan struct{}
	once sync.Once
}

func (sub *subscription) forward() {
	defer close(sub.out)
	for msg := range sub.ps.Channel() {
		select {
		case sub.out <- model.LobbyChange(msg.Payload):
		case <-sub.done:
			return
		}
	}
}

func (sub *subscription) Messages() <-chan model.LobbyChange {
	return sub.out
}

func (sub *subscription) Close() error {
	var err error
	sub.once.Do(func() {
		close(sub.done)
		err = sub.ps.Close()
	})
	return err
}
