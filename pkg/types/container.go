package types

import "strings"

// shortIDLength is the conventional truncated length for container ids.
const shortIDLength = 12

// ContainerID is a hash string identifying a container instance.
type ContainerID string

// ContainerReference resolves to a container id at the API call boundary.
//
// It is implemented by ContainerID for callers holding a bare id and by the
// container model for callers holding a fetched entity, replacing runtime
// type inspection with a small typed union.
type ContainerReference interface {
	// ContainerID returns the plain identifier of the referenced container.
	ContainerID() ContainerID
}

// ContainerID implements ContainerReference for bare ids.
func (id ContainerID) ContainerID() ContainerID {
	return id
}

// ShortID returns the 12-character short version of a container ID.
//
// Returns:
//   - string: Shortened ID without "sha256:" prefix.
func (id ContainerID) ShortID() string {
	return shortID(string(id))
}

// shortID shortens a hash string to 12 characters.
//
// Parameters:
//   - longID: Full hash string.
//
// Returns:
//   - string: Shortened ID, adjusted for "sha256:" prefix.
func shortID(longID string) string {
	prefixSep := strings.IndexRune(longID, ':')
	offset := 0
	length := shortIDLength

	// Adjust offset for "sha256:" prefix.
	if prefixSep >= 0 {
		if longID[0:prefixSep] == "sha256" {
			offset = prefixSep + 1
		} else {
			length += prefixSep + 1
		}
	}

	// Return shortened ID or full string if too short.
	if len(longID) >= offset+length {
		return longID[offset : offset+length]
	}

	return longID
}
