package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kcz17/benchmetrics/collection"
	"github.com/kcz17/benchmetrics/recorder"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const histogramBins = 50

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// WriteHistogramPNG plots the distribution of sample durations for one tag.
func WriteHistogramPNG(w io.Writer, tag recorder.Tag, samples []recorder.Sample) error {
	durations := make(plotter.Values, len(samples))
	for i, s := range samples {
		durations[i] = s.Seconds()
	}

	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("could not create plot for tag %q: %w", tag, err)
	}
	p.Title.Text = tag
	p.X.Label.Text = "duration (s)"
	p.Y.Label.Text = "samples"

	hist, err := plotter.NewHist(durations, histogramBins)
	if err != nil {
		return fmt.Errorf("could not bin durations for tag %q: %w", tag, err)
	}
	p.Add(hist)

	writer, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("could not render plot for tag %q: %w", tag, err)
	}
	if _, err := writer.WriteTo(w); err != nil {
		return fmt.Errorf("could not write plot for tag %q: %w", tag, err)
	}
	return nil
}

// SaveHistograms writes one PNG per tag into dir and returns the paths
// written, in dataset tag order.
func SaveHistograms(dir string, ds *collection.Dataset) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create histogram directory %s: %w", dir, err)
	}

	var paths []string
	for _, tag := range ds.Tags() {
		path := filepath.Join(dir, HistogramFilename(tag))
		if err := saveHistogram(path, tag, ds.Samples(tag)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func saveHistogram(path string, tag recorder.Tag, samples []recorder.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	if err := WriteHistogramPNG(f, tag, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// HistogramFilename maps a tag, which may be a file:line call site, to a
// safe file name.
func HistogramFilename(tag recorder.Tag) string {
	name := unsafeFilenameChars.ReplaceAllString(tag, "_")
	if name == "" {
		name = "_"
	}
	return name + ".png"
}
