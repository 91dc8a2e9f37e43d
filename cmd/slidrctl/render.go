package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slidrapp/slidr/internal/render"
)

var (
	renderOut   string
	renderWidth int
)

var renderCmd = &cobra.Command{
	Use:   "render <pdf>",
	Short: "Render a PDF deck to JPEG page images",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "pages", "output directory")
	renderCmd.Flags().IntVarP(&renderWidth, "width", "w", render.DefaultWidth, "page width in pixels")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}

	doc, err := render.NewFitzRenderer().Open(data)
	if err != nil {
		return err
	}
	defer doc.Close()

	if err := os.MkdirAll(renderOut, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	info("rendering %d pages at %dpx", doc.NumPage(), renderWidth)
	err = render.RenderAll(ctx, doc, renderWidth, func(page render.Page) error {
		path := filepath.Join(renderOut, fmt.Sprintf("%03d.jpg", page.Number-1))
		if err := os.WriteFile(path, page.JPEG, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if verbose {
			info("%s (%dx%d)", path, page.Width, page.Height)
		}
		return nil
	})
	if err != nil {
		return err
	}

	success("rendered %d pages to %s", doc.NumPage(), renderOut)
	return nil
}
