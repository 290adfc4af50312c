package globalconst

// This package centralizes the constants and "magic strings" shared across
// the store, its hosts and its tools.

const (
	// =========================================================================
	// Document Fields
	// =========================================================================

	// ID is the reserved field holding a document's unique identifier.
	ID = "_id"

	// =========================================================================
	// Persistence Keywords
	// =========================================================================

	// DBFileExtension is the file extension of a collection file.
	DBFileExtension = ".json"
	// TempFileSuffix is the suffix added to temporary files during writes.
	TempFileSuffix = ".tmp"
	// LockFileSuffix is the suffix of the advisory lock file next to each
	// collection file.
	LockFileSuffix = ".lock"
	// DefaultIndent is the number of spaces per level in collection files.
	DefaultIndent = 2

	// =========================================================================
	// Environment
	// =========================================================================

	// EnvPrefix prefixes every environment variable the binaries read.
	EnvPrefix = "JASONDB_"
	// EnvConfigFile names the YAML configuration file to load.
	EnvConfigFile = EnvPrefix + "CONFIG"
)
