// Package model defines shared data structures.
package model

import "time"

// Detector subsystem labels as written by the hit analyzer.
const (
	DetectorEB          = "EB"
	DetectorEE          = "EE"
	DetectorES          = "ES"
	DetectorHCAL        = "HCAL"
	DetectorPixelBarrel = "PixelBarrel"
	DetectorPixelEndcap = "PixelEndcap"
	DetectorTIB         = "TIB"
	DetectorTOB         = "TOB"
	DetectorTID         = "TID"
	DetectorTEC         = "TEC"
	DetectorMuonDT      = "MuonDT"
	DetectorMuonCSC     = "MuonCSC"
	DetectorMuonRPC     = "MuonRPC"
	DetectorMuonGEM     = "MuonGEM"
)

// ECALDetectors lists the electromagnetic calorimeter labels.
var ECALDetectors = []string{DetectorEB, DetectorEE, DetectorES}

// MuonDetectors lists the muon chamber labels removed by muon filtering.
var MuonDetectors = []string{DetectorMuonRPC, DetectorMuonDT, DetectorMuonCSC}

// HitRecord is one row of the hit table.
type HitRecord struct {
	Event        int
	Detector     string
	X            float64
	Y            float64
	Z            float64
	R            float64
	Energy       float64
	ParticleType int
	Parent       int
	Daughters    string
	Rhad1        Momentum
	Rhad2        Momentum
}

// Momentum holds the three momentum components in GeV.
type Momentum struct {
	Px float64
	Py float64
	Pz float64
}

// AnalysisConfig defines settings shared by analysis commands.
type AnalysisConfig struct {
	HitsPath   string
	EnergyCut  float64
	GluinoMass float64
	NoMuon     bool
	NoECAL     bool
	SavePath   string
}

// SubmitConfig defines batch submission settings.
type SubmitConfig struct {
	SampleCSV      string
	DryRun         bool
	MaxEvents      int
	Tarball        string
	CMSSWDir       string
	LogDir         string
	Executable     string
	Image          string
	Redirector     string
	StoreBase      string
	DirPrefix      string
	SubmitCommand  string
	StorageCommand string
	ArchiveCommand string
	WorkDir        string
	MetricsFile    string
}

// JobSpec is one line of the sample configuration.
type JobSpec struct {
	MassPoint   string
	TotalEvents int
}

// JobChunk is the unit of work handed to the batch scheduler.
type JobChunk struct {
	MassPoint string
	Events    int
	OutputDir string
	Index     int
}

// JobStatus describes the outcome of a submission attempt.
type JobStatus string

// Job statuses recorded in the ledger.
const (
	JobSubmitted JobStatus = "submitted"
	JobFailed    JobStatus = "failed"
	JobDryRun    JobStatus = "dry-run"
)

// SubmissionRun summarizes a single invocation of the submit command.
type SubmissionRun struct {
	ID         int64
	UUID       string
	StartedAt  time.Time
	SampleCSV  string
	OutputURL  string
	MaxEvents  int
	DryRun     bool
	JobCount   int
	FailedJobs int
	// Error is set when the run stopped before its jobs were handled.
	Error string
}

// SubmittedJob records one chunk of a submission run.
type SubmittedJob struct {
	RunID     int64
	MassPoint string
	Events    int
	Index     int
	JDLPath   string
	Status    JobStatus
	Error     string
}
