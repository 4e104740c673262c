// Package opf parses OPF package documents, either as standalone sidecar
// files or embedded inside an EPUB archive.
package opf

import (
	"encoding/xml"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Metadata is the normalized result of parsing an OPF document.
type Metadata struct {
	Title          string
	Subtitle       string
	Authors        []string
	Narrators      []string
	Description    string
	Publisher      string
	ISBN           string
	ASIN           string
	Language       string
	PublishedYear  string
	Genres         []string
	SeriesName     string
	SeriesSequence string

	// CoverHref is the manifest href of the cover image, resolved relative
	// to the OPF document. Only meaningful for embedded EPUB parsing.
	CoverHref      string
	CoverMediaType string
}

// pkgDocument mirrors the OPF package XML shape.
type pkgDocument struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Title []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
		} `xml:"title"`
		Creator []struct {
			Text   string `xml:",chardata"`
			ID     string `xml:"id,attr"`
			Role   string `xml:"role,attr"`
			FileAs string `xml:"file-as,attr"`
		} `xml:"creator"`
		Contributor []struct {
			Text string `xml:",chardata"`
			Role string `xml:"role,attr"`
		} `xml:"contributor"`
		Subject     []string `xml:"subject"`
		Description string   `xml:"description"`
		Publisher   string   `xml:"publisher"`
		Identifier  []struct {
			Text   string `xml:",chardata"`
			ID     string `xml:"id,attr"`
			Scheme string `xml:"scheme,attr"`
		} `xml:"identifier"`
		Date     string `xml:"date"`
		Language string `xml:"language"`
		Meta     []struct {
			Text     string `xml:",chardata"`
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Refines  string `xml:"refines,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
}

var yearRE = regexp.MustCompile(`\b(\d{4})\b`)

// Parse parses an OPF document. docPath is the path of the document inside
// its container ("" for a standalone sidecar); it anchors relative hrefs.
func Parse(r io.Reader, docPath string) (*Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	doc := &pkgDocument{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, errors.WithStack(err)
	}

	// refines-style meta entries keyed by target id, plus legacy name/content
	// pairs.
	metaProperties := map[string]map[string]string{}
	metaContent := map[string]string{}
	for _, m := range doc.Metadata.Meta {
		if m.Refines != "" {
			key := strings.ReplaceAll(m.Refines, "#", "")
			if _, ok := metaProperties[key]; !ok {
				metaProperties[key] = map[string]string{}
			}
			metaProperties[key][m.Property] = m.Text
		} else if m.Content != "" {
			metaContent[m.Name] = m.Content
		}
	}

	meta := &Metadata{
		Description: strings.TrimSpace(doc.Metadata.Description),
		Publisher:   strings.TrimSpace(doc.Metadata.Publisher),
		Language:    strings.TrimSpace(doc.Metadata.Language),
	}

	// Main title: a single title wins outright; among several, prefer the one
	// refined as title-type=main. The subtitle refinement fills Subtitle.
	switch {
	case len(doc.Metadata.Title) == 1:
		meta.Title = strings.TrimSpace(doc.Metadata.Title[0].Text)
	case len(doc.Metadata.Title) > 1:
		for _, t := range doc.Metadata.Title {
			props := metaProperties[t.ID]
			if props == nil {
				continue
			}
			switch props["title-type"] {
			case "main":
				meta.Title = strings.TrimSpace(t.Text)
			case "subtitle":
				meta.Subtitle = strings.TrimSpace(t.Text)
			}
		}
		if meta.Title == "" {
			meta.Title = strings.TrimSpace(doc.Metadata.Title[0].Text)
		}
	}

	for _, creator := range doc.Metadata.Creator {
		role := creator.Role
		if role == "" && creator.ID != "" && metaProperties[creator.ID] != nil {
			role = metaProperties[creator.ID]["role"]
		}
		if role == "aut" || role == "" {
			if name := strings.TrimSpace(creator.Text); name != "" {
				meta.Authors = append(meta.Authors, name)
			}
		}
	}
	for _, contributor := range doc.Metadata.Contributor {
		if contributor.Role == "nrt" {
			if name := strings.TrimSpace(contributor.Text); name != "" {
				meta.Narrators = append(meta.Narrators, name)
			}
		}
	}

	for _, subject := range doc.Metadata.Subject {
		if s := strings.TrimSpace(subject); s != "" {
			meta.Genres = append(meta.Genres, s)
		}
	}

	for _, ident := range doc.Metadata.Identifier {
		value := strings.TrimSpace(ident.Text)
		scheme := strings.ToUpper(ident.Scheme)
		switch {
		case scheme == "ISBN" || strings.HasPrefix(strings.ToLower(value), "isbn:"):
			meta.ISBN = strings.TrimPrefix(strings.TrimPrefix(value, "isbn:"), "ISBN:")
		case scheme == "ASIN" || scheme == "AMAZON" || scheme == "MOBI-ASIN":
			meta.ASIN = value
		}
	}

	if doc.Metadata.Date != "" {
		if match := yearRE.FindStringSubmatch(doc.Metadata.Date); match != nil {
			meta.PublishedYear = match[1]
		}
	}

	meta.SeriesName = metaContent["calibre:series"]
	meta.SeriesSequence = metaContent["calibre:series_index"]

	if coverID := metaContent["cover"]; coverID != "" {
		basePath := filepath.Dir(docPath)
		if basePath == "." {
			basePath = ""
		} else {
			basePath += "/"
		}
		for _, item := range doc.Manifest.Item {
			if item.ID == coverID {
				meta.CoverHref = basePath + item.Href
				meta.CoverMediaType = item.MediaType
			}
		}
	}

	return meta, nil
}
