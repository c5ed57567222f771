package membersync

import (
	"encoding/json"
	"fmt"
	"os"

	"lesverein.de/campai-connector/internal/campai"
)

// WriteContactCache stores the deduplicated contact set as a JSON array in
// Campai's own field casing, so a later run can skip the live fetch.
func WriteContactCache(path string, contacts []campai.Contact) error {
	data, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("encoding contact cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing contact cache: %w", err)
	}
	return nil
}

// ReadContactCache loads a contact set written by WriteContactCache.
func ReadContactCache(path string) ([]campai.Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading contact cache: %w", err)
	}
	var contacts []campai.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("decoding contact cache %q: %w", path, err)
	}
	return contacts, nil
}
