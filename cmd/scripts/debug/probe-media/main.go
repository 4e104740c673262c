package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hondanabooks/hondana/pkg/audio"
	"github.com/hondanabooks/hondana/pkg/ebook"
	"github.com/hondanabooks/hondana/pkg/mediafile"
	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
)

func main() {
	log := logger.New()

	var opts struct {
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the embedded cover image"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/probe-media <path/to/media/file>")
		os.Exit(1)
	}

	path := args[0]
	ext := strings.ToLower(filepath.Ext(path))

	var coverData []byte
	switch {
	case mediafile.IsAudio(ext):
		meta, err := audio.Probe(path)
		if err != nil {
			log.Err(err).Fatal("audio probe error")
		}
		fmt.Printf("Title: %s\nAlbum: %s\nArtist(s): %v\nNarrator(s): %v\nSeries: %s\nDuration: %s\nChapters: %d\nHas Cover Data: %v\n",
			meta.Title, meta.Album, meta.Artists, meta.Narrators, meta.Series, meta.Duration, len(meta.Chapters), len(meta.CoverData) > 0)
		coverData = meta.CoverData
	case mediafile.IsEbook(ext):
		meta, err := ebook.Parse(path)
		if err != nil {
			log.Err(err).Fatal("ebook parse error")
		}
		if meta == nil || meta.Metadata == nil {
			fmt.Println("No readable metadata.")
			return
		}
		fmt.Printf("Title: %s\nAuthor(s): %v\nHas Cover Data: %v\nCover Mime Type: %s\n",
			meta.Title, meta.Authors, len(meta.CoverData) > 0, meta.CoverMIMEType)
		coverData = meta.CoverData
	default:
		fmt.Printf("Unsupported extension %q.\n", ext)
		os.Exit(1)
	}

	if opts.CoverOutput != "" && coverData != nil {
		f, err := os.Create(opts.CoverOutput)
		if err != nil {
			log.Err(err).Fatal("create file error")
		}
		defer f.Close()
		if _, err := f.Write(coverData); err != nil {
			log.Err(err).Fatal("file write error")
		}
	}
}
