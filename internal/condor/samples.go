package condor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lpchscp/rhadron/internal/model"
)

// LoadSamples reads the sample configuration file.
func LoadSamples(path string) ([]model.JobSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only file.
			_ = cerr
		}
	}()
	specs, err := ReadSamples(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// ReadSamples parses one "mass,events" pair per line. Blank lines and lines starting with '#'
// are skipped; fields past the second are ignored.
func ReadSamples(r io.Reader) ([]model.JobSpec, error) {
	var specs []model.JobSpec
	seen := map[string]int{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected mass,events, got %q", line, text)
		}
		mass := strings.TrimSpace(fields[0])
		if mass == "" {
			return nil, fmt.Errorf("line %d: empty mass point", line)
		}
		events, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid event count: %w", line, err)
		}
		if first, ok := seen[mass]; ok {
			return nil, fmt.Errorf("line %d: mass point %s already listed on line %d: %w", line, mass, first, ErrDuplicateMassPoint)
		}
		seen[mass] = line
		specs = append(specs, model.JobSpec{MassPoint: mass, TotalEvents: events})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return specs, nil
}
