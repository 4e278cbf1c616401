package pipeline

import (
	"github.com/docslice/docslice/internal/config"
	"github.com/docslice/docslice/internal/vision"
)

// ConfigFrom maps the application configuration onto the per-stage pipeline
// settings. Stages without an application knob keep their defaults.
func ConfigFrom(app *config.Config) Config {
	c := DefaultConfig()
	c.Workers = app.Workers
	c.Retry = vision.RetryPolicy{
		MaxAttempts: app.RetryAttempts,
		Delay:       app.RetryDelay,
	}
	c.Extractor.TablePrecheck = app.TablePrecheck
	c.Corrector.Tolerance = app.SnapTolerance
	c.Cluster.WindowSize = app.ClusterWindow
	c.Cluster.MinCount = app.ClusterMinCount
	c.Classifier.MidlineMargin = app.MidlineMargin
	c.Classifier.BandGap = app.BandGap
	c.Slicer.GroupGap = app.GroupGap
	c.Filter.MinSize = app.SliceMinSize
	return c
}
