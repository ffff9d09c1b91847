// Package regiongrowing implements per-block region growing segmentation:
// one segment per owned pixel, then iterative best-neighbor merges driven
// by a pluggable Merger.
package regiongrowing

import "polsarseg/pkg/segment"

// Merger scores and commits segment merges. Implementations only deal with
// feature vectors; segment geometry and adjacency are handled by the Engine.
type Merger interface {
	// FeaturesSize returns the feature vector length per segment.
	FeaturesSize() int

	// Dissimilarity scores the merge of s1 and s2 and writes the features of
	// the merged segment into preview. It must be symmetric in s1 and s2.
	Dissimilarity(s1, s2, preview *segment.Segment) float64

	// MergeFeatures commits a preview returned by Dissimilarity into the
	// surviving segment s1, which absorbs s2.
	MergeFeatures(s1, s2, preview *segment.Segment)
}
