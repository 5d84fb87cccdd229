package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/skitourlive/skitourlive/internal/dataset"
)

// Job types carried in Pub/Sub messages.
const (
	JobDatasetRefreshed = "dataset_refreshed"
	JobWarm             = "warm"
)

// ErrUnknownJob is returned for messages with an unrecognized job type.
var ErrUnknownJob = errors.New("unknown job type")

// JobMessage is the body of a worker Pub/Sub message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// SkipWarm reloads without warming afterwards.
	SkipWarm bool `json:"skip_warm,omitempty"`
}

// Reloader rebuilds and swaps the dataset session.
type Reloader interface {
	Reload(ctx context.Context) (*dataset.Session, error)
}

// Processor executes job messages.
type Processor struct {
	reloader Reloader
	warm     *WarmJob
	logger   zerolog.Logger
}

// NewProcessor creates a job processor. warm may be nil to disable warming.
func NewProcessor(reloader Reloader, warm *WarmJob, logger zerolog.Logger) *Processor {
	return &Processor{
		reloader: reloader,
		warm:     warm,
		logger:   logger,
	}
}

// Process decodes and runs one job message.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decoding job message: %w", err)
	}

	switch msg.JobType {
	case JobDatasetRefreshed:
		return p.handleDatasetRefreshed(ctx, msg)
	case JobWarm:
		return p.runWarm(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (p *Processor) handleDatasetRefreshed(ctx context.Context, msg JobMessage) error {
	s, err := p.reloader.Reload(ctx)
	if err != nil {
		return fmt.Errorf("reloading dataset: %w", err)
	}

	p.logger.Info().
		Int("routes", s.Stats.Routes).
		Int("grid_points", s.Stats.GridPoints).
		Int("bulletins", s.Stats.Bulletins).
		Msg("dataset reloaded")

	if msg.SkipWarm {
		return nil
	}

	// The new session is already serving; a failed warm only costs latency.
	if err := p.runWarm(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("warm after reload failed")
	}
	return nil
}

func (p *Processor) runWarm(ctx context.Context) error {
	if p.warm == nil {
		return nil
	}
	_, err := p.warm.Run(ctx)
	if errors.Is(err, dataset.ErrNotLoaded) {
		p.logger.Info().Msg("no dataset loaded, nothing to warm")
		return nil
	}
	return err
}

// PubSubHandler receives job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Reloads are heavy and serialized by the holder; one at a time is enough.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	if Ack(h.processor.Process(ctx, msg.Data), logger) {
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed")
		msg.Ack()
		return
	}
	msg.Nack()
}

// Ack decides whether a processed message is acknowledged. Malformed and
// unknown messages are acked so they are not redelivered; failed jobs are
// nacked for retry.
func Ack(err error, logger zerolog.Logger) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrUnknownJob):
		logger.Warn().Err(err).Msg("dropping message")
		return true
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		logger.Error().Err(err).Msg("dropping malformed message")
		return true
	default:
		logger.Error().Err(err).Msg("job failed")
		return false
	}
}
