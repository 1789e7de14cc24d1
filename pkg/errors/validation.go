package errors

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxEntityIDLength = 256
	maxNameLength     = 128
)

// ValidateEntityID validates an identifier coming from the external model.
// Identifiers are used as map keys and in wire messages, so they must be
// non-empty, printable and of bounded length.
func ValidateEntityID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "entity id cannot be empty")
	}
	if len(id) > maxEntityIDLength {
		return New(ErrCodeInvalidInput, "entity id too long (max %d characters)", maxEntityIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "entity id contains invalid control characters")
		}
	}
	return nil
}

// snapshotNameRegex matches names safe for use as file names, redis keys
// and mongo document ids.
var snapshotNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateSnapshotName validates the name under which a layout snapshot is
// stored. It rejects anything that could escape a storage directory.
func ValidateSnapshotName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "snapshot name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "snapshot name too long (max %d characters)", maxNameLength)
	}
	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "snapshot name cannot contain path traversal sequences (..)")
	}
	if !snapshotNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid snapshot name: %q", name)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a scheme the feed client can dial.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	for _, scheme := range []string{"ws://", "wss://", "http://", "https://"} {
		if strings.HasPrefix(rawURL, scheme) {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use ws, wss, http or https scheme")
}
