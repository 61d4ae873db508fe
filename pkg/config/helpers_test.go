package config

// ResetGlobalManager clears the global manager between tests.
func ResetGlobalManager() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = nil
}
