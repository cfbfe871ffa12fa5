package stats

import (
	"sort"

	"github.com/lpchscp/rhadron/internal/hits"
)

// TopDetectors returns the n detector labels with the most hits. n <= 0 returns all labels.
func TopDetectors(counts map[string]int, n int) []string {
	labels := sortedLabels(counts)
	sort.SliceStable(labels, func(i, j int) bool {
		return counts[labels[i]] > counts[labels[j]]
	})
	if n > 0 && n < len(labels) {
		labels = labels[:n]
	}
	return labels
}

// TopValueCounts returns the first n entries of counts sorted by frequency. n <= 0 keeps all.
func TopValueCounts(counts []hits.ValueCount, n int) []hits.ValueCount {
	out := append([]hits.ValueCount(nil), counts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
