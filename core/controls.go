package orchestration

import "github.com/koscakluka/clipspeak/core/audio"

// Stop abandons the running cycle: the outstanding fetch is cancelled and
// playback is stopped. It returns once the pipeline is idle.
func (c *Coordinator) Stop() {
	done := make(chan struct{})
	if c.runtime.call(stopCommand{done: done}, done) {
		return
	}

	if !c.runtime.started.Load() && c.player != nil {
		c.player.Stop()
	}
}

// SetEnabled pauses or resumes reacting to text changes. Disabling does not
// stop a cycle that is already running.
func (c *Coordinator) SetEnabled(enabled bool) {
	c.settingsMu.Lock()
	c.settings.Enabled = enabled
	c.settingsMu.Unlock()
}

func (c *Coordinator) Enabled() bool {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings.Enabled
}

// SetVolume clamps v to [0, 1] and applies it to the active playback
// without interrupting it.
func (c *Coordinator) SetVolume(v float64) {
	v = audio.ClampVolume(v)

	c.settingsMu.Lock()
	c.settings.Volume = v
	c.settingsMu.Unlock()

	if c.player != nil {
		c.player.SetVolume(v)
	}
}

// UpdateSettings replaces all settings. Volume, endpoint, API key and model
// are applied immediately, the rest is picked up by the next cycle.
func (c *Coordinator) UpdateSettings(settings Settings) {
	settings = settings.normalized()

	c.settingsMu.Lock()
	previous := c.settings
	c.settings = settings
	c.settingsMu.Unlock()

	if c.player != nil {
		c.player.SetVolume(settings.Volume)
	}
	if settings.Endpoint != "" && settings.Endpoint != previous.Endpoint {
		if setter, ok := c.speech.(endpointSetter); ok {
			setter.SetEndpoint(settings.Endpoint)
		}
	}
	if settings.APIKey != previous.APIKey {
		if setter, ok := c.speech.(apiKeySetter); ok {
			setter.SetAPIKey(settings.APIKey)
		}
	}
	if settings.Model != "" && settings.Model != previous.Model {
		if setter, ok := c.speech.(modelSetter); ok {
			setter.SetModel(settings.Model)
		}
	}
}

func (c *Coordinator) Settings() Settings {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings
}
