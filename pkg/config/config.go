package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and loads the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)

	if err := manager.RegisterSection(NewViewportSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewCompositingSection()); err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetViewport returns the viewport section from global config.
// Returns nil if config is not initialized.
func GetViewport() *ViewportSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDViewport)
	if !ok {
		return nil
	}

	viewport, ok := section.(*ViewportSection)
	if !ok {
		return nil
	}
	return viewport
}

// GetCompositing returns the compositing section from global config.
// Returns nil if config is not initialized.
func GetCompositing() *CompositingSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDCompositing)
	if !ok {
		return nil
	}

	compositing, ok := section.(*CompositingSection)
	if !ok {
		return nil
	}
	return compositing
}

// ViewportSettingsOrDefault returns the global viewport settings, or the
// defaults when config has not been initialized.
func ViewportSettingsOrDefault() ViewportSettings {
	if viewport := GetViewport(); viewport != nil {
		return viewport.Snapshot()
	}
	return DefaultViewportSettings()
}
