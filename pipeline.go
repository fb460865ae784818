package palettegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Erusel/palettegen/palette"
	"github.com/Erusel/palettegen/recolor"
	"github.com/sirupsen/logrus"
)

type counters struct {
	images  int64
	failed  int64
	skipped int64
	files   int64
}

func (c *counters) summary() *Summary {
	return &Summary{
		Images:  int(atomic.LoadInt64(&c.images)),
		Failed:  int(atomic.LoadInt64(&c.failed)),
		Skipped: int(atomic.LoadInt64(&c.skipped)),
		Files:   int(atomic.LoadInt64(&c.files)),
	}
}

// OutputName returns the filename used for image file recolored with the
// named palette.
func OutputName(file, paletteName string, emissive bool) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if emissive {
		return fmt.Sprintf("%s_%s_emissive.png", base, paletteName)
	}
	return fmt.Sprintf("%s_%s.png", base, paletteName)
}

// outputBase is the part of file OutputName keeps, folded so images that
// would clash on a case-insensitive filesystem are treated as the same.
func outputBase(file string) string {
	return strings.ToLower(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
}

func (g *Generator) findImages(ctx context.Context, base string, c *counters) (<-chan string, <-chan error, error) {
	info, err := os.Stat(base)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan string)
	errc := make(chan error, 1)

	if !info.IsDir() {
		go func() {
			defer close(out)
			defer close(errc)
			select {
			case out <- base:
			case <-ctx.Done():
				errc <- ctx.Err()
			}
		}()
		return out, errc, nil
	}

	go func() {
		defer close(out)
		defer close(errc)
		seen := make(map[string]string)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if file == base {
				return nil
			}

			// Only the top directory is considered
			if info.Mode().IsDir() {
				return filepath.SkipDir
			}

			// Ignore any hidden files, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' {
				return nil
			}

			if !info.Mode().IsRegular() || !isImage(file) {
				return nil
			}

			// Walk is in lexical order so the first of sword.gif and
			// sword.png is always the one kept
			key := outputBase(file)
			if first, ok := seen[key]; ok {
				atomic.AddInt64(&c.skipped, 1)
				g.logger.WithFields(logrus.Fields{
					"image": file,
					"clash": first,
				}).Warn("Skipping image with the same output names as another")
				return nil
			}
			seen[key] = file

			select {
			case out <- file:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (g *Generator) recolorImage(file string, source palette.Palette, targets []target, emissive bool, s sink, c *counters) error {
	m, format, err := ReadImage(file)
	if err != nil {
		return err
	}

	g.logger.WithFields(logrus.Fields{
		"image":  file,
		"format": format,
		"size":   m.Bounds().Size().String(),
	}).Info("Processing image")

	b := new(bytes.Buffer)
	write := func(name, group string, out image.Image) error {
		b.Reset()
		if err := encodePNG(b, out); err != nil {
			return err
		}
		if err := s.WriteFile(name, b.Bytes()); err != nil {
			return &sinkError{err}
		}
		atomic.AddInt64(&c.files, 1)
		g.logger.WithFields(logrus.Fields{
			"group": group,
			"file":  name,
		}).Debug("Saved")
		return nil
	}

	for _, t := range targets {
		if err := write(OutputName(file, t.name, false), t.group, recolor.Recolor(m, source, t.palette)); err != nil {
			return err
		}
		if emissive {
			if err := write(OutputName(file, t.name, true), t.group, recolor.Emissive(m, source, t.palette)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *Generator) imageWorker(ctx context.Context, in <-chan string, source palette.Palette, targets []target, emissive bool, s sink, c *counters) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			if err := ctx.Err(); err != nil {
				errc <- err
				return
			}

			err := g.recolorImage(file, source, targets, emissive, s, c)
			var se *sinkError
			switch {
			case err == nil:
				atomic.AddInt64(&c.images, 1)
			case errors.As(err, &se):
				// Can't write anything, so give up on the whole batch
				errc <- se.err
				return
			default:
				// A bad image shouldn't stop the others
				atomic.AddInt64(&c.failed, 1)
				g.logger.WithFields(logrus.Fields{
					"image": file,
				}).WithError(err).Warn("Unable to recolor image")
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	var first error
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Generate recolors every image in opts.Input with each selected target
// palette. Images that cannot be read are logged and counted as failed
// without stopping the run.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Output == "" && opts.Zip == "" {
		return nil, errors.New("palettegen: no output directory or archive")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := g.sourcePalette(opts.Source)
	if err != nil {
		return nil, err
	}

	targets, err := g.targets(opts.Groups)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errors.New("palettegen: no target palettes selected")
	}

	g.logger.WithFields(logrus.Fields{
		"source":   source.String(),
		"palettes": len(targets),
		"emissive": opts.Emissive,
	}).Info("Starting")

	var sinks multiSink
	if opts.Output != "" {
		s, err := newDirSink(opts.Output)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if opts.Zip != "" {
		s, err := newZipSink(opts.Zip)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	c := new(counters)
	files, errc, err := g.findImages(ctx, opts.Input, c)
	if err != nil {
		sinks.Close()
		return nil, err
	}
	errcList = append(errcList, errc)

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	for i := 0; i < workers; i++ {
		errc, err := g.imageWorker(ctx, files, source, targets, opts.Emissive, sinks, c)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		errcList = append(errcList, errc)
	}

	err = waitForPipeline(cancelFunc, errcList...)
	if cerr := sinks.Close(); err == nil {
		err = cerr
	}

	summary := c.summary()
	if err == nil && summary.Images+summary.Failed+summary.Skipped == 0 {
		g.logger.WithField("input", opts.Input).Warn("No images found")
	}

	return summary, err
}

// sinkError marks a failure to write output, which ends the run
type sinkError struct {
	err error
}

func (e *sinkError) Error() string {
	return e.err.Error()
}

func (e *sinkError) Unwrap() error {
	return e.err
}
