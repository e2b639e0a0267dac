package app

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/roman-kulish/drone-geofusion/internal/storage"
	"github.com/roman-kulish/drone-geofusion/internal/triangulation"
)

const plotSize = 8 * vg.Inch

// plotSession renders the drone positions of the observations and the fused
// target estimates of a session onto a longitude / latitude chart. The
// format follows the file extension.
func plotSession(sess *storage.Session, observations []*triangulation.Observation, estimates []*triangulation.PositionEstimate, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Session %d: %s", sess.ID, sess.Name)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(plotter.NewGrid())

	if len(observations) > 0 {
		pts := make(plotter.XYs, 0, len(observations))
		for _, o := range observations {
			pts = append(pts, plotter.XY{X: o.Position.Longitude, Y: o.Position.Latitude})
		}

		drone, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("drone positions: %w", err)
		}
		drone.GlyphStyle.Shape = draw.TriangleGlyph{}
		drone.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
		drone.GlyphStyle.Radius = vg.Points(3)

		p.Add(drone)
		p.Legend.Add("drone", drone)
	}

	if len(estimates) > 0 {
		pts := make(plotter.XYs, 0, len(estimates))
		for _, e := range estimates {
			pts = append(pts, plotter.XY{X: e.Longitude, Y: e.Latitude})
		}

		targets, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("target estimates: %w", err)
		}
		targets.GlyphStyle.Shape = draw.CrossGlyph{}
		targets.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		targets.GlyphStyle.Radius = vg.Points(5)

		p.Add(targets)
		p.Legend.Add("target", targets)
	}

	if err := p.Save(plotSize, plotSize, path); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}
