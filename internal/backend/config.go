package backend

import (
	"fmt"

	"pocket/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.MirrorBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.MirrorBackend)
	}

	return Config{
		Type:                backendType,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		CalendarID:          appConfig.CalendarID,
		Credentials:         appConfig.GoogleCredentials(),
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	needsGoogle := c.Type == SheetsBackend || c.CalendarID != ""
	if c.Type == SheetsBackend && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
	}
	if needsGoogle && len(c.ClientOptions) == 0 && !c.Credentials.Configured() {
		return fmt.Errorf("Google credentials are required for sheets backend or calendar alerts")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
