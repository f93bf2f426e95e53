package domain

// HookConfig defines scripts run around a single operation type
type HookConfig struct {
	Before string `yaml:"before"`
	After  string `yaml:"after"`
}

// IsEmpty returns true if no hooks are configured
func (h HookConfig) IsEmpty() bool {
	return h.Before == "" && h.After == ""
}

// InstallHooks contains all hooks for an install
type InstallHooks struct {
	Activate   HookConfig `yaml:"activate"`
	Deactivate HookConfig `yaml:"deactivate"`
}

// IsEmpty returns true if no hooks are configured
func (h InstallHooks) IsEmpty() bool {
	return h.Activate.IsEmpty() && h.Deactivate.IsEmpty()
}
