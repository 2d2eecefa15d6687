package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/scattered3d/scattered"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	n := flag.Int("n", 100, "Number of random points")
	spread := flag.Float64("spread", 10, "Side of the cube the points are drawn from")
	linear := flag.Bool("linear", false, "Use a diagonal line instead of random points")
	colorBy := flag.String("color", "", "Column to color by (x, y or z)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	shot := flag.String("screenshot", "", "Write a screenshot to this file and exit")
	flag.Parse()

	cfg := scattered.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = scattered.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.Debug = true
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	cols := scattered.RandomColumns(*n, float32(*spread), rng)
	if *linear {
		cols = scattered.LinearColumns(*n)
	}
	enc := scattered.DefaultEncoding()
	enc.Color = *colorBy
	cloud, err := scattered.PointCloudFromColumns(cols, enc, scattered.ColorMapperFunc(ramp))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var viewer *scattered.Viewer
	viewer, err = scattered.Display(cloud, scattered.DisplayOptions{
		Width:  1280,
		Height: 720,
		Config: &cfg,
		Rand:   rng,
		OnSelect: func(indices []int) {
			fmt.Printf("selected %d points\n", len(indices))
		},
		OnKey: func(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
			if action != glfw.Press {
				return
			}
			switch key {
			case glfw.KeyEscape:
				viewer.Window.SetShouldClose(true)
			case glfw.KeyP:
				done := viewer.RequestScreenshot(scattered.ScreenshotOptions{})
				go func() {
					if err := <-done; err != nil {
						viewer.Logger.Errorf("screenshot: %v", err)
					}
				}()
			}
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer viewer.Destroy()

	if viewer.State() == scattered.StateFailed {
		viewer.Logger.Errorf("%s", viewer.Message())
	}

	if *shot != "" {
		if err := viewer.Screenshot(ctx, scattered.ScreenshotOptions{Filename: *shot}); err != nil {
			viewer.Logger.Errorf("screenshot: %v", err)
			os.Exit(1)
		}
		return
	}
	if err := viewer.Run(ctx); err != nil && err != context.Canceled {
		viewer.Logger.Errorf("run: %v", err)
	}
}

// ramp maps values to a blue to orange gradient over their range.
func ramp(values []float32) ([]float32, error) {
	lo, hi := float32(0), float32(0)
	for i, v := range values {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	out := make([]float32, 4*len(values))
	for i, v := range values {
		t := float32(0.5)
		if hi > lo {
			t = (v - lo) / (hi - lo)
		}
		out[i*4+0] = 0.2 + 0.8*t
		out[i*4+1] = 0.4 + 0.2*t
		out[i*4+2] = 0.9 - 0.8*t
		out[i*4+3] = 1
	}
	return out, nil
}
