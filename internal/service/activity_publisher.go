package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
)

// ActivityPublisher broadcasts committed activity entries to other processes.
type ActivityPublisher interface {
	Publish(ctx context.Context, activity dto.ActivityResponse) error
}

type activityPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewActivityPublisher fans activity events out over Redis pub/sub and NATS.
// Either transport may be nil; with both nil Publish is a no-op.
func NewActivityPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) ActivityPublisher {
	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":activity"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".activity"
	}

	return &activityPublisher{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "activity_publisher").Logger(),
	}
}

func (p *activityPublisher) Publish(ctx context.Context, activity dto.ActivityResponse) error {
	event := dto.ActivityEvent{
		Source:   p.nodeID,
		Activity: activity,
		SentAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}
