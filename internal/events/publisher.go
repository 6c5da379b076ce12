package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/shared/kafka"
	ev "github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

const platformKey = "platform"

// KafkaPublisher grava os eventos no log durável com chave por contest
// (eventos de um contest ficam ordenados na partição)
type KafkaPublisher struct {
	w kafka.MessageWriter
}

func NewKafkaPublisher(w kafka.MessageWriter) *KafkaPublisher { return &KafkaPublisher{w: w} }

func (p *KafkaPublisher) Publish(ctx context.Context, e ev.ContestEvent) error {
	key := platformKey
	if e.HasContest() {
		key = strconv.FormatUint(uint64(e.ContestID), 10)
	}
	return errors.Wrapf(kafka.Publish(ctx, p.w, key, e), "publish %s", e.Type)
}

// RedisPublisher é a parte do cliente Redis usada no Pub/Sub
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Broadcaster publica os eventos no canal Pub/Sub escutado pelos hubs
// WebSocket
type Broadcaster struct {
	r       RedisPublisher
	channel string
}

func NewBroadcaster(r RedisPublisher, channel string) *Broadcaster {
	return &Broadcaster{r: r, channel: channel}
}

func (b *Broadcaster) Publish(ctx context.Context, e ev.ContestEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrap(b.r.Publish(ctx, b.channel, payload).Err(), "redis publish")
}

// Sink recebe eventos de contest
type Sink interface {
	Publish(ctx context.Context, e ev.ContestEvent) error
}

// Fanout entrega cada evento a todos os sinks. Falha em um sink é logada e
// não interrompe os demais; retorna o primeiro erro
type Fanout struct {
	sinks []Sink
	log   *zap.Logger
}

func NewFanout(log *zap.Logger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, log: log}
}

func (f *Fanout) Publish(ctx context.Context, e ev.ContestEvent) error {
	var first error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, e); err != nil {
			f.log.Warn("event sink failed", zap.String("type", e.Type), zap.Uint32("contest_id", e.ContestID), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
