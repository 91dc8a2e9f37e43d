package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/slidrapp/slidr/internal/broadcast"
)

var (
	redisURL   string
	session    string
	slideCount int
	verbose    bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "slidrctl",
	Short: "Control slidr presentations from the terminal",
	Long: `slidrctl renders PDF decks to page images and joins live presentation
sessions over Redis: step slides like a clicker, send reactions, or mirror
the current slide of a running session.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initUI(noColor)
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL of the sync backend")
	rootCmd.PersistentFlags().StringVar(&session, "session", "", "named session within the presentation")
	rootCmd.PersistentFlags().IntVar(&slideCount, "slides", 0, "slide count used to clamp navigation (0 = unknown)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		failure("%v", err)
	}
	return err
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// syncClient bundles a Redis connection and the transport running on it.
type syncClient struct {
	client    *redis.Client
	transport *broadcast.RedisTransport
	session   string
}

func connect(ctx context.Context, slug string) (*syncClient, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("--redis-url or REDIS_URL is required")
	}
	sessionID, err := broadcast.SessionID(slug, session)
	if err != nil {
		return nil, err
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &syncClient{
		client: client,
		transport: broadcast.NewRedisTransport(client, broadcast.RedisTransportOptions{
			Logger: newLogger(),
		}),
		session: sessionID,
	}, nil
}

// Close flushes pending publishes before disconnecting.
func (c *syncClient) Close() {
	c.transport.Close()
	c.client.Close()
}

// view builds an unmounted view on the Redis transport. The CLI never runs a heartbeat.
func (c *syncClient) view(role broadcast.Role, opts broadcast.ViewOptions) *broadcast.View {
	opts.Session = c.session
	opts.Role = role
	opts.SlideCount = slideCount
	opts.Transports = []broadcast.Transport{c.transport}
	opts.HeartbeatInterval = -1
	opts.Logger = newLogger()
	return broadcast.NewView(opts)
}
