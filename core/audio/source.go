package audio

import "io"

// Source is an encoded audio stream together with the container it is
// declared or expected to be in. The body may not be seekable.
//
// Whoever holds a Source owns Body and must close it.
type Source struct {
	Body   io.ReadCloser
	Format Container
}

// Close releases the underlying stream. Safe on a nil Source.
func (s *Source) Close() error {
	if s == nil || s.Body == nil {
		return nil
	}
	return s.Body.Close()
}
