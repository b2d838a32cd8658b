package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/chief-impact7/OCRvKing/internal/dto"
	"github.com/chief-impact7/OCRvKing/internal/observability"
)

const progressBufferSize = 16

// NotifyService fans grading progress events out to connected observers.
// Every instance broadcasts in-process; Redis and NATS fanout keep multiple
// replicas in sync when configured.
type NotifyService interface {
	Publish(ctx context.Context, event dto.ProgressEvent)
	Subscribe() (<-chan dto.ProgressEvent, func())
	Start(ctx context.Context)
}

type notifyService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	sanitizer    *bluemonday.Policy
	broker       *progressBroker
	nodeID       string
}

type progressEnvelope struct {
	Source string            `json:"source"`
	Event  dto.ProgressEvent `json:"event"`
	SentAt time.Time         `json:"sent_at"`
}

type progressBroker struct {
	mu          sync.RWMutex
	subscribers map[chan dto.ProgressEvent]struct{}
}

// NewNotifyService constructs a notify service. Both redisClient and natsConn
// may be nil; fanout is then in-process only.
func NewNotifyService(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) NotifyService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":progress"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".progress"
	}

	return &notifyService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "notify_service").Logger(),
		sanitizer:    bluemonday.StrictPolicy(),
		broker: &progressBroker{
			subscribers: make(map[chan dto.ProgressEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *notifyService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notifyService) Publish(ctx context.Context, event dto.ProgressEvent) {
	if event.Message != "" {
		event.Message = strings.TrimSpace(s.sanitizer.Sanitize(event.Message))
	}

	s.broker.broadcast(event)

	if err := s.fanout(ctx, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to fan out progress event")
	}
}

func (s *notifyService) Subscribe() (<-chan dto.ProgressEvent, func()) {
	channel := make(chan dto.ProgressEvent, progressBufferSize)

	s.broker.subscribe(channel)
	observability.WSClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(channel)
		observability.WSClientsActive().Dec()
	}

	return channel, cleanup
}

func (s *notifyService) fanout(ctx context.Context, event dto.ProgressEvent) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	envelope := progressEnvelope{
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notifyService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("progress redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *notifyService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "ocrvking-progress", func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats progress subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain progress nats subscription")
		}
	}()
}

func (s *notifyService) handleEnvelope(payload []byte) {
	var envelope progressEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid progress envelope payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.broker.broadcast(envelope.Event)
}

func (b *progressBroker) subscribe(ch chan dto.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[ch] = struct{}{}
}

func (b *progressBroker) unsubscribe(ch chan dto.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *progressBroker) broadcast(event dto.ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
