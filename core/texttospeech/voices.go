package texttospeech

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const (
	synthesisSuffix   = "/speech"
	voicesSuffix      = "/voices"
	defaultVoicesPath = "/v1/audio/voices"
)

// VoicesEndpoint derives the voice listing endpoint from a synthesis
// endpoint. A path ending in /speech has that segment replaced by /voices,
// anything else falls back to /v1/audio/voices on the same host.
func VoicesEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return "", fmt.Errorf("invalid synthesis endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid synthesis endpoint %q: scheme and host are required", endpoint)
	}

	voices := url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host}
	if strings.HasSuffix(u.Path, synthesisSuffix) {
		voices.Path = strings.TrimSuffix(u.Path, synthesisSuffix) + voicesSuffix
	} else {
		voices.Path = defaultVoicesPath
	}
	return voices.String(), nil
}

// ParseVoices reads a voice listing in any of the shapes services use: a bare
// list, an object with a "voices" list, or an object keyed by voice name.
// Anything else yields an empty list.
func ParseVoices(data []byte) []string {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return []string{}
	}

	for _, parse := range []func(json.RawMessage) ([]string, error){
		parseVoiceList,
		parseVoicesField,
		parseVoiceKeys,
	} {
		if voices, err := parse(raw); err == nil {
			return voices
		}
	}
	return []string{}
}

var errShapeMismatch = errors.New("voice listing shape mismatch")

func parseVoiceList(raw json.RawMessage) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errShapeMismatch
	}

	voices := make([]string, 0, len(items))
	for _, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			voices = append(voices, name)
			continue
		}
		voices = append(voices, string(item))
	}
	return voices, nil
}

func parseVoicesField(raw json.RawMessage) ([]string, error) {
	var object struct {
		Voices json.RawMessage `json:"voices"`
	}
	if err := json.Unmarshal(raw, &object); err != nil || len(object.Voices) == 0 || string(object.Voices) == "null" {
		return nil, errShapeMismatch
	}
	return parseVoiceList(object.Voices)
}

func parseVoiceKeys(raw json.RawMessage) ([]string, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil || object == nil {
		return nil, errShapeMismatch
	}

	voices := make([]string, 0, len(object))
	for name := range object {
		voices = append(voices, name)
	}
	sort.Strings(voices)
	return voices, nil
}
