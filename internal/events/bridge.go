package events

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"stride/internal/models"
	"stride/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying activity events between
// processes (other devices, companion daemons).
const Channel = "activities:events"

type envelope struct {
	Origin     string           `json:"origin"`
	Kind       string           `json:"kind"`
	Activity   *models.Activity `json:"activity,omitempty"`
	ActivityID string           `json:"activity_id,omitempty"`
}

// Bridge fans local bus events out to Redis pub/sub and injects events
// published by other processes into the local bus. A nil Redis client makes
// every method a no-op, so the engine runs unchanged without Redis.
type Bridge struct {
	rdb    *redis.Client
	bus    *Bus
	origin string
	subID  int
	stop   context.CancelFunc
	log    *observability.Logger
}

// NewBridge wires bus to the given Redis client. The bridge tags outgoing
// envelopes with a per-process origin id so its own publications are dropped
// when Redis echoes them back.
func NewBridge(rdb *redis.Client, bus *Bus, log *observability.Logger) *Bridge {
	if log == nil {
		log = observability.Discard()
	}
	return &Bridge{
		rdb:    rdb,
		bus:    bus,
		origin: uuid.NewString(),
		log:    log,
	}
}

// Start subscribes to the local bus and to the Redis channel. It returns
// once the Redis subscription is established; message handling runs on a
// background goroutine until ctx is cancelled or Stop is called.
func (br *Bridge) Start(ctx context.Context) error {
	if br.rdb == nil {
		return nil
	}

	ctx, br.stop = context.WithCancel(ctx)
	br.subID = br.bus.subscribe(func(ev Event) {
		br.forward(ctx, ev)
	})

	sub := br.rdb.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							br.log.Error("panic in bridge subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					br.inject(msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// Stop tears down the bus subscription and the Redis listener.
func (br *Bridge) Stop() {
	if br.rdb == nil {
		return
	}
	if br.subID != 0 {
		br.bus.unsubscribe(br.subID)
		br.subID = 0
	}
	if br.stop != nil {
		br.stop()
	}
}

func (br *Bridge) forward(ctx context.Context, ev Event) {
	env := envelope{Origin: br.origin, Kind: ev.Kind()}
	switch e := ev.(type) {
	case ActivityUpdated:
		env.Activity = e.Activity
	case ActivityDeleted:
		env.ActivityID = e.ActivityID
	default:
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		br.log.Error("marshal event envelope", "error", err)
		return
	}
	if err := br.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		br.log.Warn("publish event to redis", "kind", env.Kind, "error", err)
	}
}

func (br *Bridge) inject(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		br.log.Warn("discarding malformed event envelope", "error", err)
		return
	}
	if env.Origin == br.origin {
		return
	}
	switch env.Kind {
	case ActivityUpdated{}.Kind():
		if env.Activity == nil {
			return
		}
		env.Activity.Normalize()
		// Skip our own bus subscription so the event is not re-forwarded.
		br.bus.publishExcept(br.subID, ActivityUpdated{Activity: env.Activity})
	case ActivityDeleted{}.Kind():
		if env.ActivityID == "" {
			return
		}
		br.bus.publishExcept(br.subID, ActivityDeleted{ActivityID: env.ActivityID})
	default:
		br.log.Warn("discarding event with unknown kind", "kind", env.Kind)
	}
}
