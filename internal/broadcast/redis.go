package broadcast

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/slidrapp/slidr/internal/metrics"
)

const (
	defaultRowTTL     = 12 * time.Hour
	redisWriteTimeout = 5 * time.Second
	outboundSize      = 256
)

// RedisTransportOptions configures a RedisTransport.
type RedisTransportOptions struct {
	// RowTTL is how long the session row outlives its last write.
	RowTTL time.Duration
	Logger zerolog.Logger
}

type outbound struct {
	session string
	msg     Message
}

// RedisTransport carries messages across processes and devices through Redis
// Pub/Sub. Slide positions are also written to a per-session hash (the
// session row) so new subscribers start from the last known index.
type RedisTransport struct {
	client   *redis.Client
	logger   zerolog.Logger
	rowTTL   time.Duration
	outbound chan outbound
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewRedisTransport starts the writer goroutine. The client stays owned by the caller.
func NewRedisTransport(client *redis.Client, opts RedisTransportOptions) *RedisTransport {
	if opts.RowTTL <= 0 {
		opts.RowTTL = defaultRowTTL
	}

	t := &RedisTransport{
		client:   client,
		logger:   opts.Logger.With().Str("transport", "redis").Logger(),
		rowTTL:   opts.RowTTL,
		outbound: make(chan outbound, outboundSize),
		done:     make(chan struct{}),
	}

	t.wg.Add(1)
	go t.writeLoop()
	return t
}

// sessionChannel returns the Pub/Sub channel for a session.
func sessionChannel(session string) string {
	return fmt.Sprintf("slidr:session:%s", session)
}

// sessionRowKey returns the hash holding the session's last slide position.
func sessionRowKey(session string) string {
	return fmt.Sprintf("slidr:session:%s:row", session)
}

// Name implements Transport.
func (t *RedisTransport) Name() string { return "redis" }

// Publish implements Transport. Messages are written in order by a single goroutine.
func (t *RedisTransport) Publish(session string, msg Message) {
	select {
	case <-t.done:
		return
	default:
	}

	select {
	case t.outbound <- outbound{session: session, msg: msg}:
		metrics.SyncPublished.WithLabelValues(t.Name(), string(msg.ID)).Inc()
	default:
		metrics.SyncDropped.WithLabelValues(t.Name(), "outbound_full").Inc()
		t.logger.Warn().Str("session", session).Str("type", string(msg.ID)).Msg("outbound queue full, dropping message")
	}
}

func (t *RedisTransport) writeLoop() {
	defer t.wg.Done()

	for {
		select {
		case out := <-t.outbound:
			t.write(out)
		case <-t.done:
			// Flush what was accepted before Close.
			for {
				select {
				case out := <-t.outbound:
					t.write(out)
				default:
					return
				}
			}
		}
	}
}

func (t *RedisTransport) write(out outbound) {
	ctx, cancel := context.WithTimeout(context.Background(), redisWriteTimeout)
	defer cancel()

	data, err := out.msg.Encode()
	if err != nil {
		t.logger.Error().Err(err).Msg("encode message")
		return
	}

	start := time.Now()
	pipe := t.client.Pipeline()
	if index, ok := out.msg.SlideIndex(); ok {
		key := sessionRowKey(out.session)
		pipe.HSet(ctx, key,
			"id", string(out.msg.ID),
			"index", index,
			"timestamp", out.msg.Timestamp,
			"sender", out.msg.Sender,
		)
		pipe.Expire(ctx, key, t.rowTTL)
	}
	pipe.Publish(ctx, sessionChannel(out.session), data)

	if _, err := pipe.Exec(ctx); err != nil {
		metrics.SyncDropped.WithLabelValues(t.Name(), "redis_error").Inc()
		t.logger.Warn().Err(err).Str("session", out.session).Msg("publish failed")
		return
	}
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
}

// Subscribe implements Transport. The current session row, if any, is
// delivered first unless peerID wrote it.
func (t *RedisTransport) Subscribe(ctx context.Context, session, peerID string, fn func(Message)) (func(), error) {
	ps := t.client.Subscribe(ctx, sessionChannel(session))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", session, err)
	}

	box := newMailbox(t.Name(), peerID, fn)

	row, ok, err := t.LastState(ctx, session)
	if err != nil {
		t.logger.Warn().Err(err).Str("session", session).Msg("read session row")
	} else if ok {
		box.deliver(row)
	}

	ch := ps.Channel()
	go func() {
		for m := range ch {
			msg, err := DecodeMessage([]byte(m.Payload))
			if err != nil {
				t.logger.Debug().Err(err).Str("session", session).Msg("skipping malformed frame")
				continue
			}
			box.deliver(msg)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			box.close()
			_ = ps.Close()
		})
	}, nil
}

// LastState reads the session row. ok is false when the session has no row yet.
func (t *RedisTransport) LastState(ctx context.Context, session string) (msg Message, ok bool, err error) {
	vals, err := t.client.HGetAll(ctx, sessionRowKey(session)).Result()
	if err != nil {
		return Message{}, false, fmt.Errorf("read row %s: %w", session, err)
	}
	if len(vals) == 0 {
		return Message{}, false, nil
	}

	index, err := strconv.Atoi(vals["index"])
	if err != nil {
		return Message{}, false, fmt.Errorf("%w: row index %q", ErrInvalidMessage, vals["index"])
	}
	ts, _ := strconv.ParseInt(vals["timestamp"], 10, 64)

	id := MessageType(vals["id"])
	if id == "" {
		id = TypeHeartbeat
	}

	return Message{
		ID:        id,
		Index:     &index,
		Sender:    vals["sender"],
		Timestamp: ts,
	}, true, nil
}

// Close flushes accepted messages and stops the writer.
func (t *RedisTransport) Close() error {
	t.once.Do(func() {
		close(t.done)
	})
	t.wg.Wait()
	return nil
}
