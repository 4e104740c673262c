package metadata

import (
	"context"

	"github.com/hondanabooks/hondana/pkg/audio"
	"github.com/hondanabooks/hondana/pkg/config"
	"github.com/hondanabooks/hondana/pkg/ebook"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

// Input describes one grouped item to the source handlers. Paths are
// absolute except where noted.
type Input struct {
	MediaKind string
	// RelPath is the item's path relative to its library folder.
	RelPath string
	// Dir is the item's folder (the parent folder for a single-file item).
	Dir    string
	IsFile bool

	AudioPaths []string
	EbookPath  string
	// TextPaths are txt and nfo files attached to the item.
	TextPaths []string
	OPFPath   string
	// AbsPath and JSONPath are the abmetadata and metadata.json sidecars.
	AbsPath  string
	JSONPath string

	// ImageFilenames are relative to Dir; cover resolution happens after the
	// pipeline runs.
	ImageFilenames []string

	Settings *config.ScannerSettings
}

// Adapters are the external probes the handlers read through. Zero-value
// fields fall back to the real implementations; tests swap them out.
type Adapters struct {
	ProbeAudio func(path string) (*audio.Metadata, error)
	ParseEbook func(path string) (*ebook.Metadata, error)
}

// Pipeline runs the configured source handlers, in order, over a fresh draft.
type Pipeline struct {
	adapters Adapters
	handlers map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, in *Input, d *Draft) error

func NewPipeline(adapters Adapters) *Pipeline {
	if adapters.ProbeAudio == nil {
		adapters.ProbeAudio = audio.Probe
	}
	if adapters.ParseEbook == nil {
		adapters.ParseEbook = ebook.Parse
	}
	p := &Pipeline{adapters: adapters}
	p.handlers = map[string]handlerFunc{
		"folderStructure": p.folderStructure,
		"audioMetatags":   p.audioMetatags,
		"ebookMetadata":   p.ebookMetadata,
		"nfoFile":         p.nfoFile,
		"txtFiles":        p.txtFiles,
		"opfFile":         p.opfFile,
		"absMetadataFile": p.absMetadataFile,
	}
	return p
}

// Run builds a draft by invoking each configured handler in order. A handler
// that fails contributes nothing; an unknown handler name is logged and
// skipped. Neither aborts the pipeline.
func (p *Pipeline) Run(ctx context.Context, in *Input) *Draft {
	log := logger.FromContext(ctx)

	order := config.DefaultMetadataPrecedence
	if in.Settings != nil && len(in.Settings.MetadataPrecedence) > 0 {
		order = in.Settings.MetadataPrecedence
	}

	draft := &Draft{}
	for _, name := range order {
		// Ebook-only items read their embedded metadata at the audio tags'
		// position in the order.
		if name == "audioMetatags" && len(in.AudioPaths) == 0 && in.EbookPath != "" {
			name = "ebookMetadata"
		}

		handler, ok := p.handlers[name]
		if !ok {
			log.Error("unknown metadata source handler", logger.Data{"handler": name})
			continue
		}
		if err := handler(ctx, in, draft); err != nil {
			log.Err(err).Warn("metadata source handler failed", logger.Data{
				"handler":  name,
				"rel_path": in.RelPath,
			})
		}
	}
	return draft
}

func (p *Pipeline) folderStructure(_ context.Context, in *Input, d *Draft) error {
	if in.MediaKind == models.MediaKindPodcast {
		parsePodcastFolder(in.RelPath).apply(d)
		return nil
	}
	parseSubtitles := in.Settings != nil && in.Settings.ParseSubtitles
	parseBookFolder(in.RelPath, in.IsFile, parseSubtitles).apply(d)
	return nil
}
