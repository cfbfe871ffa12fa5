package condor

import "github.com/lpchscp/rhadron/internal/model"

// Default commands and limits.
const (
	DefaultMaxEvents      = 1000
	DefaultSubmitCommand  = "condor_submit"
	DefaultStorageCommand = "eos"
	DefaultArchiveCommand = "tar"
)

// DefaultConfig returns the submission settings used when neither flags nor the config file
// override them.
func DefaultConfig() model.SubmitConfig {
	return model.SubmitConfig{
		MaxEvents:      DefaultMaxEvents,
		Tarball:        DefaultTarball,
		CMSSWDir:       DefaultCMSSWDir,
		LogDir:         DefaultLogDir,
		Executable:     DefaultExecutable,
		Image:          DefaultImage,
		Redirector:     DefaultRedirector,
		StoreBase:      DefaultStoreBase,
		DirPrefix:      DefaultDirPrefix,
		SubmitCommand:  DefaultSubmitCommand,
		StorageCommand: DefaultStorageCommand,
		ArchiveCommand: DefaultArchiveCommand,
		WorkDir:        ".",
	}
}
