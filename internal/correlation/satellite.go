package correlation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/drone-geofusion/internal/geo"
	"github.com/roman-kulish/drone-geofusion/internal/telemetry"
)

const (
	defaultZoomLevel = 17
	defaultGridSize  = 64
	defaultMaxShift  = 8
)

// WithLogger sets the logger for the matcher
func WithLogger(logger *slog.Logger) func(*Satellite) {
	return func(s *Satellite) {
		s.logger = logger.With(slog.String("component", "correlation"), slog.String("matcher", MatcherSatellite))
	}
}

// WithZoomLevel sets the zoom level of the reference tiles to look up
func WithZoomLevel(zoom int) func(*Satellite) {
	return func(s *Satellite) {
		s.zoomLevel = zoom
	}
}

// WithGridSize sets the side of the square grayscale grid both images are
// resampled to before matching
func WithGridSize(size int) func(*Satellite) {
	return func(s *Satellite) {
		s.gridSize = size
	}
}

// WithMaxShift sets the largest alignment shift, in grid pixels, searched in
// each direction
func WithMaxShift(shift int) func(*Satellite) {
	return func(s *Satellite) {
		s.maxShift = shift
	}
}

// Satellite correlates drone frames with cached satellite tiles. Both images
// are resampled to a common grayscale grid and the alignment shift with the
// highest normalized cross-correlation wins. The correlation coefficient of
// that shift is the confidence, the shift itself mapped through the pose gives
// the corrected coordinates.
type Satellite struct {
	cacheDir  string
	zoomLevel int
	gridSize  int
	maxShift  int

	now    func() time.Time
	logger *slog.Logger
}

// NewSatellite creates a matcher reading reference tiles from cacheDir
func NewSatellite(cacheDir string, options ...func(*Satellite)) (*Satellite, error) {
	s := Satellite{
		cacheDir:  cacheDir,
		zoomLevel: defaultZoomLevel,
		gridSize:  defaultGridSize,
		maxShift:  defaultMaxShift,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	info, err := os.Stat(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("tile cache directory '%s': %w", cacheDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid tile cache directory '%s'", cacheDir)
	}

	// the overlap of the two grids must stay at least half of the grid
	if s.gridSize < 8 || s.maxShift < 0 || s.maxShift*4 > s.gridSize {
		return nil, fmt.Errorf("invalid grid size %d for max shift %d", s.gridSize, s.maxShift)
	}

	return &s, nil
}

// TileName returns the cache file name of the reference tile covering the
// given coordinates
func TileName(lat, lon float64, zoom int) string {
	return fmt.Sprintf("sat_%.5f_%.5f_%d.jpg", lat, lon, zoom)
}

func (s *Satellite) Correlate(ctx context.Context, frame []byte, t *telemetry.Telemetry, threshold float64) (*Result, error) {
	pose, err := t.Pose()
	if err != nil {
		return nil, err
	}

	original := geo.Coordinates{Latitude: pose.Latitude, Longitude: pose.Longitude}
	r := Result{
		Original:             original,
		Corrected:            original,
		CoverageRadiusMeters: coverageRadius(pose),
		Timestamp:            s.now(),
	}

	droneImg, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decoding drone frame: %w", err)
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	tile, err := s.loadTile(pose)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("no reference tile available",
			slog.String("tile", TileName(pose.Latitude, pose.Longitude, s.zoomLevel)))

		classify(&r, threshold)
		return &r, nil

	case err != nil:
		return nil, err
	}

	best := bestAlignment(grayscale(droneImg, s.gridSize), grayscale(tile, s.gridSize), s.maxShift)
	r.Confidence = math.Max(0, math.Min(1, best.score))

	if best.dx != 0 || best.dy != 0 {
		bounds := droneImg.Bounds()
		px := float64(best.dx) * float64(bounds.Dx()) / float64(s.gridSize)
		py := float64(best.dy) * float64(bounds.Dy()) / float64(s.gridSize)

		r.Corrected = geo.CalculateRealCoordinates(px, py, pose).Coordinates()
	}
	classify(&r, threshold)

	s.logger.Info("correlation completed",
		slog.String("confidence", fmt.Sprintf("%.2f", r.Confidence)),
		slog.Int("shiftX", best.dx),
		slog.Int("shiftY", best.dy),
		slog.String("status", string(r.Status)))

	return &r, nil
}

func (s *Satellite) loadTile(pose geo.DronePose) (img image.Image, err error) {
	f, err := os.Open(filepath.Join(s.cacheDir, TileName(pose.Latitude, pose.Longitude, s.zoomLevel)))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if img, _, err = image.Decode(f); err != nil {
		return nil, fmt.Errorf("decoding reference tile: %w", err)
	}
	return img, nil
}

// grayscale resamples the image onto a size x size grayscale grid
func grayscale(src image.Image, size int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

type alignment struct {
	dx, dy int
	score  float64
}

// bestAlignment searches the shift of b relative to a maximizing the Pearson
// correlation of the overlapping pixels. Ties go to the smaller shift.
func bestAlignment(a, b *image.Gray, maxShift int) alignment {
	n := a.Bounds().Dx()
	best := alignment{score: math.Inf(-1)}

	xs := make([]float64, 0, n*n)
	ys := make([]float64, 0, n*n)
	for dy := -maxShift; dy <= maxShift; dy++ {
		for dx := -maxShift; dx <= maxShift; dx++ {
			xs, ys = xs[:0], ys[:0]

			for y := max(0, -dy); y < min(n, n-dy); y++ {
				for x := max(0, -dx); x < min(n, n-dx); x++ {
					xs = append(xs, float64(a.GrayAt(x, y).Y))
					ys = append(ys, float64(b.GrayAt(x+dx, y+dy).Y))
				}
			}

			score := stat.Correlation(xs, ys, nil)
			if math.IsNaN(score) {
				score = 0 // flat overlap, nothing to correlate
			}

			if score > best.score || (score == best.score && manhattan(dx, dy) < manhattan(best.dx, best.dy)) {
				best = alignment{dx: dx, dy: dy, score: score}
			}
		}
	}

	return best
}

func manhattan(dx, dy int) int {
	return abs(dx) + abs(dy)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
