package audio

import "strings"

// Container is the file format wrapping the encoded audio, as requested from
// the synthesis service or detected while decoding.
type Container string

const (
	ContainerMP3 Container = "mp3"
	ContainerWAV Container = "wav"
)

// DefaultContainer is what the synthesis service is asked to produce.
const DefaultContainer = ContainerMP3

// KnownContainers lists every container the player can decode, in the order
// detection falls back through them.
func KnownContainers() []Container {
	return []Container{ContainerMP3, ContainerWAV}
}

// ParseContainer maps a response format name to a known container. Unknown
// names yield false.
func ParseContainer(name string) (Container, bool) {
	switch c := Container(strings.ToLower(strings.TrimSpace(name))); c {
	case ContainerMP3, ContainerWAV:
		return c, true
	}
	return "", false
}

func (c Container) String() string { return string(c) }
