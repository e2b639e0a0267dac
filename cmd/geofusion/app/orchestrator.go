package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/image/draw"

	"github.com/roman-kulish/drone-geofusion/internal/annotate"
	"github.com/roman-kulish/drone-geofusion/internal/correlation"
	"github.com/roman-kulish/drone-geofusion/internal/geo"
	"github.com/roman-kulish/drone-geofusion/internal/service"
	"github.com/roman-kulish/drone-geofusion/internal/telemetry"
	"github.com/roman-kulish/drone-geofusion/internal/triangulation"
)

const jpegQuality = 95

// Report is the outcome of a mission replay
type Report struct {
	Targets   map[string]string                          // Mission target name to engine target ID
	Estimates map[string]*triangulation.PositionEstimate // Keyed by mission target name
	Frames    []FrameReport
}

// FrameReport is the outcome of processing a single frame
type FrameReport struct {
	Image       string
	Output      string
	Correlation *correlation.Result
	Changes     *service.ChangeReport // Set when the mission has a reference
	Marks       []annotate.Mark
}

// WithAnnotator sets the annotator used to render annotated frames. Frames
// are not rendered without one.
func WithAnnotator(a *annotate.Annotator) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.annotator = a
	}
}

// WithLogger sets the logger for the orchestrator
func WithLogger(logger *slog.Logger) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.logger = logger.With(slog.String("component", "orchestrator"))
	}
}

// Orchestrator replays a mission through the service. Every mission step
// moves the drone to the recorded pose before it is processed.
type Orchestrator struct {
	service   *service.Service
	telemetry *telemetry.Static
	annotator *annotate.Annotator
	logger    *slog.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(svc *service.Service, provider *telemetry.Static, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		service:   svc,
		telemetry: provider,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Replay processes the sightings, fuses every target and then processes the
// frames of the mission
func (o *Orchestrator) Replay(ctx context.Context, m *Mission) (*Report, error) {
	r := Report{
		Targets:   make(map[string]string),
		Estimates: make(map[string]*triangulation.PositionEstimate),
	}

	if m.Reference != nil {
		o.telemetry.Set(*m.Reference)
		if _, err := o.service.AddReference(); err != nil {
			return nil, fmt.Errorf("adding reference: %w", err)
		}
	}

	var names []string // in order of first sighting
	for i, s := range m.Sightings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id, ok := r.Targets[s.Target]
		if !ok {
			id = o.service.CreateTarget()
			r.Targets[s.Target] = id
			names = append(names, s.Target)
		}

		o.telemetry.Set(s.Pose)
		_, err := o.service.AddObservation(ctx, service.ObservationParams{
			TargetID:   id,
			Bearing:    s.Bearing,
			Elevation:  s.Elevation,
			Confidence: s.Confidence,
		})
		switch {
		case errors.Is(err, geo.ErrValidation):
			o.logger.Warn("sighting skipped", slog.Int("sighting", i), slog.String("target", s.Target), slog.Any("error", err))
		case err != nil:
			return nil, fmt.Errorf("sighting %d: %w", i, err)
		}
	}

	for _, name := range names {
		estimate, err := o.service.CalculatePosition(ctx, r.Targets[name])
		switch {
		case errors.Is(err, geo.ErrInsufficientData):
			o.logger.Warn("target not fused", slog.String("target", name), slog.Any("error", err))
			continue
		case err != nil:
			return nil, fmt.Errorf("target %s: %w", name, err)
		}

		r.Estimates[name] = estimate
		o.logger.Info("target located",
			slog.String("target", name),
			slog.String("targetID", estimate.TargetID),
			slog.String("latitude", fmt.Sprintf("%.6f", estimate.Latitude)),
			slog.String("longitude", fmt.Sprintf("%.6f", estimate.Longitude)),
			slog.String("precision", humanize.SIWithDigits(estimate.Precision.Meters, 1, "m")),
			slog.String("confidence", fmt.Sprintf("%.1f%%", estimate.Precision.ConfidencePercent)))
	}

	for i, f := range m.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fr, err := o.processFrame(ctx, m, f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		r.Frames = append(r.Frames, *fr)
	}

	return &r, nil
}

func (o *Orchestrator) processFrame(ctx context.Context, m *Mission, f Frame) (*FrameReport, error) {
	data, err := os.ReadFile(m.resolve(f.Image))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	o.telemetry.Set(f.Pose)
	fr := FrameReport{Image: f.Image, Output: f.Output}

	if m.Reference != nil {
		if fr.Changes, err = o.service.DetectChanges(ctx, data); err != nil {
			return nil, err
		}
		fr.Correlation = fr.Changes.Correlation
	} else if fr.Correlation, err = o.service.Correlate(ctx, data); err != nil {
		return nil, err
	}

	for _, d := range f.Detections {
		loc, err := o.service.LocatePixel(d.X, d.Y)
		if err != nil {
			return nil, err
		}

		fr.Marks = append(fr.Marks, annotate.Mark{
			X:          int(d.X),
			Y:          int(d.Y),
			Label:      d.Label,
			Location:   loc,
			Confidence: d.Confidence,
		})
		o.logger.Info("detection located",
			slog.String("image", f.Image),
			slog.String("label", d.Label),
			slog.String("latitude", fmt.Sprintf("%.6f", loc.Latitude)),
			slog.String("longitude", fmt.Sprintf("%.6f", loc.Longitude)),
			slog.String("accuracy", humanize.SIWithDigits(loc.AccuracyMeters, 1, "m")))
	}

	if f.Output == "" || o.annotator == nil {
		return &fr, nil
	}

	if err = o.render(data, m.resolve(f.Output), &fr); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", f.Output, err)
	}
	return &fr, nil
}

func (o *Orchestrator) render(data []byte, output string, fr *FrameReport) (err error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)

	if err = o.annotator.Annotate(img, fr.Marks); err != nil {
		return err
	}
	if err = o.annotator.Caption(img, caption(fr)); err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	switch strings.ToLower(filepath.Ext(output)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(out, img)
	}
	if err != nil {
		return err
	}

	o.logger.Info("frame rendered", slog.String("output", output), slog.Int("detections", len(fr.Marks)))
	return nil
}

func caption(fr *FrameReport) []string {
	c := fr.Correlation
	lines := []string{
		fmt.Sprintf("Drone: %.5f, %.5f", c.Original.Latitude, c.Original.Longitude),
		fmt.Sprintf("Corrected: %.5f, %.5f (%s, %.2f)", c.Corrected.Latitude, c.Corrected.Longitude, c.Status, c.Confidence),
		"Coverage: " + humanize.SIWithDigits(c.CoverageRadiusMeters, 1, "m"),
	}
	if fr.Changes != nil {
		lines = append(lines, fmt.Sprintf("Changes: %.2f%% vs %s", fr.Changes.ChangePercentage, fr.Changes.ReferenceID))
	}
	return lines
}
