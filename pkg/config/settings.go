package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// ScannerSettings configures the scanning and metadata synthesis engine. It
// is loaded from the settings file and HONDANA_-prefixed environment
// variables, then passed by value through the scan call chain.
type ScannerSettings struct {
	// MetadataPrecedence is the ordered list of named metadata source
	// handlers. Later handlers win for scalar fields; earlier handlers win
	// for fill-if-empty array fields.
	MetadataPrecedence []string `koanf:"metadata_precedence"`

	// PreferAudioMetadata applies authors/narrators parsed from embedded
	// audio tags at overwrite-wins semantics instead of fill-if-empty.
	PreferAudioMetadata bool `koanf:"prefer_audio_metadata"`

	// FindCovers enables the external provider cover search fallback when no
	// folder or embedded cover exists.
	FindCovers bool `koanf:"find_covers"`

	// ParseSubtitles splits "Title - Subtitle" folder names into separate
	// title and subtitle fields.
	ParseSubtitles bool `koanf:"parse_subtitles"`

	// StoreMetadataWithItem writes a metadata.json sidecar into each item's
	// folder after metadata synthesis, so the catalog survives a database
	// loss. Single-file items at the folder root are skipped since they have
	// no folder of their own.
	StoreMetadataWithItem bool `koanf:"store_metadata_with_item"`
}

// DefaultMetadataPrecedence is the default source handler order. The
// audioMetatags entry is swapped for ebookMetadata on ebook-only items.
var DefaultMetadataPrecedence = []string{
	"folderStructure",
	"audioMetatags",
	"nfoFile",
	"txtFiles",
	"opfFile",
	"absMetadataFile",
}

func defaultScannerSettings() *ScannerSettings {
	return &ScannerSettings{
		MetadataPrecedence: append([]string(nil), DefaultMetadataPrecedence...),
	}
}

// LoadScannerSettings reads the settings file (YAML, optional) and overlays
// environment variables. A missing file yields the defaults.
func LoadScannerSettings(path string) (*ScannerSettings, error) {
	settings := defaultScannerSettings()

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "failed to load settings file %s", path)
			}
		}
	}

	err := k.Load(env.Provider("HONDANA_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "HONDANA_"))
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", settings); err != nil {
		return nil, errors.WithStack(err)
	}

	if len(settings.MetadataPrecedence) == 0 {
		settings.MetadataPrecedence = append([]string(nil), DefaultMetadataPrecedence...)
	}

	return settings, nil
}
