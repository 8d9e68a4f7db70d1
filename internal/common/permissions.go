package common

// File permission constants shared by everything that writes to disk.
const (
	// FilePermissionSecure is used for credentials and settings.
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for formatted SQL and generated scripts.
	FilePermissionNormal = 0644

	// DirPermissionSecure is used for the config directory.
	DirPermissionSecure = 0700
)
