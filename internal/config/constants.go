package config

import (
	"time"

	"github.com/solutionspelichet/library-un/pkg/contracts"
)

// Application constants
const (
	AppName    = "library-un"
	AppVersion = contracts.Version

	DefaultMultiplier   = 0.35
	DefaultMaxFileMB    = 50
	DefaultColumns      = "A,B,C,D"
	DefaultSinkTimeout  = 45 * time.Second
	DefaultResultsSheet = "resultats"
	DefaultScaledSheet  = "ML"

	// Archived tracking workbooks are named after this prefix and the run time
	ArchiveNamePrefix = "suivi_"
)
