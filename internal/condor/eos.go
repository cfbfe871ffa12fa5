package condor

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

// storageAttempts allows one retry of each remote-storage command.
const storageAttempts = 2

// Default remote-storage location.
const (
	DefaultRedirector = "root://cmseos.fnal.gov/"
	DefaultStoreBase  = "/store/user/lpchscp/gcumming"
	DefaultDirPrefix  = "signalv3_prod_"
)

// Storage provisions directories through the eos command line client.
type Storage struct {
	runner     Runner
	command    string
	redirector string
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewStorage returns a Storage issuing command against redirector.
func NewStorage(runner Runner, command, redirector string, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		runner:     runner,
		command:    command,
		redirector: redirector,
		retryDelay: time.Second,
		logger:     logger,
	}
}

// OutputURL joins the redirector and a store path.
func OutputURL(redirector, storePath string) string {
	return strings.TrimRight(redirector, "/") + "/" + storePath
}

// EnsureDir lists the parent of dir and creates dir when no entry matches its name. It reports
// whether the directory was created.
func (s *Storage) EnsureDir(ctx context.Context, dir string) (bool, error) {
	parent, name := path.Split(strings.TrimRight(dir, "/"))
	var listing []byte
	err := s.retry(ctx, "ls", func() error {
		out, err := s.runner.Run(ctx, s.command, s.redirector, "ls", parent)
		listing = out
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", parent, err)
	}
	for _, entry := range strings.Fields(string(listing)) {
		if path.Base(entry) == name {
			s.logger.Info("output directory already exists", zap.String("dir", dir))
			return false, nil
		}
	}

	s.logger.Info("output directory does not exist, creating it", zap.String("dir", dir))
	err = s.retry(ctx, "mkdir", func() error {
		_, err := s.runner.Run(ctx, s.command, s.redirector, "mkdir", dir)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return true, nil
}

func (s *Storage) retry(ctx context.Context, op string, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(storageAttempts),
		retry.Delay(s.retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("storage command failed, retrying",
				zap.String("op", op),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}
