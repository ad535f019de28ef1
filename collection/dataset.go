package collection

import (
	"sort"

	"github.com/kcz17/benchmetrics/recorder"
)

// Dataset is the merge of every collected worker's timing log. Tags are kept
// in the order they were first merged so reports list rows stably. A tag is
// only present if it has at least one sample.
type Dataset struct {
	tags    []recorder.Tag
	samples map[recorder.Tag][]recorder.Sample
}

func NewDataset() *Dataset {
	return &Dataset{samples: map[recorder.Tag][]recorder.Sample{}}
}

// Add appends samples to tag, creating the tag on first sight.
func (d *Dataset) Add(tag recorder.Tag, samples ...recorder.Sample) {
	if len(samples) == 0 {
		return
	}
	existing, ok := d.samples[tag]
	if !ok {
		d.tags = append(d.tags, tag)
	}
	d.samples[tag] = append(existing, samples...)
}

// Merge appends every tag of a worker's timing log. Tags new to the dataset
// are added in lexicographic order as map iteration order is random.
func (d *Dataset) Merge(log recorder.TimingLog) {
	tags := make([]recorder.Tag, 0, len(log))
	for tag := range log {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		d.Add(tag, log[tag]...)
	}
}

// MergeDataset appends all of other into d.
func (d *Dataset) MergeDataset(other *Dataset) {
	for _, tag := range other.tags {
		d.Add(tag, other.samples[tag]...)
	}
}

func (d *Dataset) Tags() []recorder.Tag {
	tags := make([]recorder.Tag, len(d.tags))
	copy(tags, d.tags)
	return tags
}

// Samples returns the samples for tag, or nil if the tag was never merged.
func (d *Dataset) Samples(tag recorder.Tag) []recorder.Sample {
	return d.samples[tag]
}

// Len is the number of tags.
func (d *Dataset) Len() int {
	return len(d.tags)
}

// SampleCount is the number of samples across all tags.
func (d *Dataset) SampleCount() int {
	n := 0
	for _, samples := range d.samples {
		n += len(samples)
	}
	return n
}
