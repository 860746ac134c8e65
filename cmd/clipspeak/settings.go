package main

import (
	"fmt"

	"github.com/jinzhu/copier"
	orchestration "github.com/koscakluka/clipspeak/core"
	"github.com/koscakluka/clipspeak/core/audio"
	"github.com/koscakluka/clipspeak/internal/config"
)

// settingsFromConfig flattens the config sections the coordinator reads into
// coordinator settings. Fields are matched by name.
func settingsFromConfig(cfg config.Config) (orchestration.Settings, error) {
	settings := orchestration.DefaultSettings()
	if err := copier.Copy(&settings, &cfg.Speech); err != nil {
		return settings, fmt.Errorf("failed to copy speech settings: %w", err)
	}
	if err := copier.Copy(&settings, &cfg.Playback); err != nil {
		return settings, fmt.Errorf("failed to copy playback settings: %w", err)
	}
	settings.Enabled = cfg.Enabled

	format, ok := audio.ParseContainer(cfg.Speech.ResponseFormat)
	if !ok {
		return settings, fmt.Errorf("unsupported response format %q", cfg.Speech.ResponseFormat)
	}
	settings.Format = format

	return settings, nil
}
