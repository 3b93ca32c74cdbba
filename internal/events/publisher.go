package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/apperrors"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/requestid"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/utils"
)

// Publisher pushes qualification events onto a JetStream stream so downstream
// consumers (supervision dashboards, reporting) learn about finished calls.
// Publishing happens after the recording transaction has committed; a publish
// failure is logged and counted, never surfaced to the caller.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// NewPublisher connects to NATS and ensures the target stream exists
func NewPublisher(url, stream, subject string) (*Publisher, error) {
	// Connect to NATS server
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, s *nats.Subscription, err error) {
			logger.Log.Error("NATS error", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to NATS: %w", apperrors.ErrNATS, err)
	}

	// Create JetStream context
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: failed to create JetStream context: %w", apperrors.ErrNATS, err)
	}

	p := &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
	}

	if err := p.setupStream(stream, subject); err != nil {
		nc.Close()
		return nil, err
	}

	return p, nil
}

// setupStream ensures the stream exists, creating it if missing
func (p *Publisher) setupStream(stream, subject string) error {
	info, err := p.js.StreamInfo(stream)
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("%w: failed to get stream info for '%s': %w", apperrors.ErrNATS, stream, err)
	}

	if info == nil {
		_, err = p.js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("%w: failed to add stream '%s': %w", apperrors.ErrNATS, stream, err)
		}
		logger.Log.Info("Created stream",
			zap.String("name", stream),
			zap.String("subject", subject),
		)
	}

	return nil
}

// buildMsg assembles the outgoing message: JSON call-history payload plus
// routing headers so consumers can filter without decoding the body.
func (p *Publisher) buildMsg(ctx context.Context, record model.CallHistory) *nats.Msg {
	msg := nats.NewMsg(p.subject)
	msg.Data = utils.MustMarshalJSON(record)
	msg.Header.Set("X-Campaign-ID", record.CampaignID)
	msg.Header.Set("X-Agent-ID", record.AgentID)
	if requestID, err := requestid.FromContext(ctx); err == nil {
		msg.Header.Set("X-Request-ID", requestID)
	}
	return msg
}

// NotifyQualified publishes the committed call-history record
func (p *Publisher) NotifyQualified(ctx context.Context, record model.CallHistory) {
	log := logger.FromContext(ctx)

	if _, err := p.js.PublishMsg(p.buildMsg(ctx, record)); err != nil {
		observer.IncEventPublishFailure()
		log.Error("Failed to publish qualification event",
			zap.String("subject", p.subject),
			zap.String("call_history_id", record.ID),
			zap.Error(err))
		return
	}

	log.Debug("Published qualification event",
		zap.String("subject", p.subject),
		zap.String("call_history_id", record.ID))
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
