package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/slidrapp/slidr/internal/broadcast"
)

const commandTimeout = 10 * time.Second

var navCmd = &cobra.Command{
	Use:   "nav <slug> next|previous|goto <slide>",
	Short: "Move a live session to another slide",
	Long: `Move every view of a live session. "goto" takes a 1-based slide number.
The current position is read from the session row kept by the sync backend.
"next" needs --slides so it stops at the last slide.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runNav,
}

var reactCmd = &cobra.Command{
	Use:   "react <slug> <kind>",
	Short: "Send a reaction to every view of a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runReact,
}

var clearCmd = &cobra.Command{
	Use:   "clear <slug>",
	Short: "Clear reactions on every view of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(navCmd, reactCmd, clearCmd)
}

// navTarget resolves a nav action against the current index. count is the
// deck size, 0 when unknown.
func navTarget(current, count int, action string, args []string) (int, error) {
	switch action {
	case "next":
		if count <= 0 {
			return 0, fmt.Errorf("next needs --slides to know where the deck ends")
		}
		return min(current+1, count-1), nil
	case "previous", "prev":
		return max(current-1, 0), nil
	case "goto":
		if len(args) == 0 {
			return 0, fmt.Errorf("goto needs a slide number")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return 0, fmt.Errorf("invalid slide number %q", args[0])
		}
		return n - 1, nil
	default:
		return 0, fmt.Errorf("unknown action %q (want next, previous or goto)", action)
	}
}

func runNav(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := connect(ctx, args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	current := 0
	row, ok, err := c.transport.LastState(ctx, c.session)
	if err != nil {
		return err
	}
	if ok {
		current, _ = row.SlideIndex()
	}

	target, err := navTarget(current, slideCount, args[1], args[2:])
	if err != nil {
		return err
	}

	v := c.view(broadcast.RolePresenter, broadcast.ViewOptions{})
	v.SetSlideIndex(target)

	success("%s: %s", c.session, slideLine(v.State().Index, slideCount))
	return nil
}

func runReact(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := connect(ctx, args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	c.view(broadcast.RoleAudience, broadcast.ViewOptions{}).React(args[1])
	success("%s: sent %s", c.session, args[1])
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := connect(ctx, args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	c.view(broadcast.RoleAudience, broadcast.ViewOptions{}).ClearReactions()
	success("%s: reactions cleared", c.session)
	return nil
}
