package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/slidrapp/slidr/internal/broadcast"
)

var watchCmd = &cobra.Command{
	Use:   "watch <slug>",
	Short: "Mirror a live session and print every slide change and reaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := connect(ctx, args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	v := c.view(broadcast.RoleAudience, broadcast.ViewOptions{
		OnSlideChange: func(s broadcast.SlideState) {
			fmt.Println(slideLine(s.Index, s.SlideCount))
		},
		OnReaction: func(kind string) {
			info("reaction: %s", kind)
		},
		OnClearReaction: func() {
			info("reactions cleared")
		},
	})
	if err := v.Mount(ctx); err != nil {
		return err
	}
	defer v.Close()

	info("watching %s (ctrl-c to stop)", c.session)
	<-ctx.Done()
	return nil
}
