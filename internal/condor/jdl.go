package condor

import (
	"fmt"
	"io"
	"path"

	"github.com/lpchscp/rhadron/internal/model"
)

// Defaults for the generated job descriptions.
const (
	DefaultExecutable = "runGenerator.sh"
	DefaultImage      = "/cvmfs/singularity.opensciencegrid.org/cmssw/cms:rhel7"
	DefaultTarball    = "cmsswTar.tar.gz"
	DefaultLogDir     = "condorMonitoringOutput"
)

// JobDescription is the content of one HTCondor submit file.
type JobDescription struct {
	Universe             string
	ShouldTransferFiles  string
	WhenToTransferOutput string
	TransferInputFiles   string
	Output               string
	Error                string
	Log                  string
	Executable           string
	Arguments            string
	ApptainerImage       string
	Queue                int
}

// NewJobDescription builds the description of chunk. Log files are placed under
// <logDir>/<date>/ and carry the chunk index so that chunks of one mass point stay apart.
func NewJobDescription(chunk model.JobChunk, cfg model.SubmitConfig, date string) JobDescription {
	base := path.Join(cfg.LogDir, date, fmt.Sprintf("production_M%s_%d", chunk.MassPoint, chunk.Index))
	return JobDescription{
		Universe:             "vanilla",
		ShouldTransferFiles:  "YES",
		WhenToTransferOutput: "ON_EXIT",
		TransferInputFiles:   cfg.Tarball,
		Output:               base + "_out.stdout",
		Error:                base + "_err.stderr",
		Log:                  base + "_log.log",
		Executable:           cfg.Executable,
		Arguments:            Arguments(chunk),
		ApptainerImage:       cfg.Image,
		Queue:                1,
	}
}

// Arguments returns the positional arguments handed to the executable:
// mass point, event count, destination and chunk index.
func Arguments(chunk model.JobChunk) string {
	return fmt.Sprintf("%s %d %s %d", chunk.MassPoint, chunk.Events, chunk.OutputDir, chunk.Index)
}

// JDLName returns the submit file name of chunk.
func JDLName(chunk model.JobChunk, date string) string {
	return fmt.Sprintf("production_M%s_%s_%d.jdl", chunk.MassPoint, date, chunk.Index)
}

// WriteTo renders the description in submit file syntax.
func (d JobDescription) WriteTo(w io.Writer) (int64, error) {
	lines := []string{
		"universe = " + d.Universe,
		"Should_Transfer_Files = " + d.ShouldTransferFiles,
		"WhenToTransferOutput = " + d.WhenToTransferOutput,
		"Transfer_Input_Files = " + d.TransferInputFiles,
		"Output = " + d.Output,
		"Error = " + d.Error,
		"Log = " + d.Log,
		"Executable = " + d.Executable,
		"Arguments = " + d.Arguments,
		fmt.Sprintf("+ApptainerImage = %q", d.ApptainerImage),
		fmt.Sprintf("Queue %d", d.Queue),
	}
	var total int64
	for _, line := range lines {
		n, err := io.WriteString(w, line+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
