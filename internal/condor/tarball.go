package condor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// DefaultCMSSWDir is the working area archived into the job tarball.
const DefaultCMSSWDir = "../../../../CMSSW_10_6_30"

// EnsureTarball reuses the archive at tarball when it exists and otherwise runs
// "<archiveCommand> -hcf <tarball> <cmsswDir>". localPath is where the archive is looked up.
func EnsureTarball(ctx context.Context, runner Runner, archiveCommand, tarball, localPath, cmsswDir string, logger *zap.Logger) (bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	_, err := os.Stat(localPath)
	if err == nil {
		logger.Warn("found an existing tarball, reusing it", zap.String("tarball", tarball))
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat tarball: %w", err)
	}
	logger.Info("creating tarball of working area", zap.String("tarball", tarball), zap.String("dir", cmsswDir))
	if _, err := runner.Run(ctx, archiveCommand, "-hcf", tarball, cmsswDir); err != nil {
		return false, fmt.Errorf("failed to create tarball: %w", err)
	}
	return true, nil
}
