// Package condor builds HTCondor job descriptions for R-hadron signal production and submits them.
package condor

import (
	"errors"
	"fmt"

	"github.com/lpchscp/rhadron/internal/model"
)

// ErrInvalidPartition is returned when an event count or the per-job maximum is not positive.
var ErrInvalidPartition = errors.New("invalid partition")

// ErrDuplicateMassPoint is returned when a mass point is listed more than once. Chunks of the
// same mass point share job names and log paths, so each mass point may appear only once.
var ErrDuplicateMassPoint = errors.New("duplicate mass point")

// Partition splits total events into chunks of at most maxPerJob. All chunks but the last hold
// exactly maxPerJob events; a remainder chunk is added only when total is not a multiple.
func Partition(total, maxPerJob int) ([]int, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: total events %d must be positive", ErrInvalidPartition, total)
	}
	if maxPerJob <= 0 {
		return nil, fmt.Errorf("%w: max events per job %d must be positive", ErrInvalidPartition, maxPerJob)
	}
	full := total / maxPerJob
	out := make([]int, 0, full+1)
	for i := 0; i < full; i++ {
		out = append(out, maxPerJob)
	}
	if rem := total % maxPerJob; rem != 0 {
		out = append(out, rem)
	}
	return out, nil
}

// Chunks partitions a sample into job chunks indexed from zero.
func Chunks(spec model.JobSpec, maxPerJob int, outputDir string) ([]model.JobChunk, error) {
	sizes, err := Partition(spec.TotalEvents, maxPerJob)
	if err != nil {
		return nil, fmt.Errorf("mass point %s: %w", spec.MassPoint, err)
	}
	out := make([]model.JobChunk, len(sizes))
	for i, n := range sizes {
		out[i] = model.JobChunk{
			MassPoint: spec.MassPoint,
			Events:    n,
			OutputDir: outputDir,
			Index:     i,
		}
	}
	return out, nil
}
