package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"
	"time"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"
)

var (
	boxTypeChpl = gomp4.StrToBoxType("chpl")
	boxTypeTref = gomp4.StrToBoxType("tref")
)

// readMP4Timing reads the movie duration and chapter list from an MP4-family
// file. Chapters come from a QuickTime text track when one is referenced via
// tref/chap, otherwise from a Nero chpl box.
func readMP4Timing(r io.ReadSeeker) (time.Duration, []Chapter, error) {
	var (
		timescale      uint32
		rawDuration    uint64
		chapterTrackID uint32
		chplData       []byte
	)

	_, err := gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case gomp4.BoxTypeMoov(), gomp4.BoxTypeTrak(), gomp4.BoxTypeUdta():
			return h.Expand()
		case gomp4.BoxTypeMvhd():
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if mvhd, ok := payload.(*gomp4.Mvhd); ok {
				timescale = mvhd.Timescale
				rawDuration = mvhd.DurationV1
				if mvhd.GetVersion() == 0 {
					rawDuration = uint64(mvhd.DurationV0)
				}
			}
			return nil, nil
		case boxTypeTref:
			var buf bytes.Buffer
			if _, err := h.ReadData(&buf); err != nil {
				return nil, err
			}
			if id := chapTrackID(buf.Bytes()); id != 0 {
				chapterTrackID = id
			}
			return nil, nil
		case boxTypeChpl:
			var buf bytes.Buffer
			if _, err := h.ReadData(&buf); err != nil {
				return nil, err
			}
			chplData = buf.Bytes()
			return nil, nil
		default:
			return nil, nil
		}
	})
	if err != nil {
		return 0, nil, errors.WithStack(err)
	}

	var duration time.Duration
	if timescale > 0 {
		duration = time.Duration(float64(rawDuration) / float64(timescale) * float64(time.Second))
	}

	var chapters []Chapter
	if chapterTrackID != 0 {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return 0, nil, errors.WithStack(err)
		}
		chapters, err = readTextTrackChapters(r, chapterTrackID, timescale)
		if err != nil {
			return 0, nil, err
		}
	}
	if len(chapters) == 0 && len(chplData) > 0 {
		chapters = parseChplChapters(chplData)
	}

	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Start < chapters[j].Start })
	for i := range chapters {
		if i < len(chapters)-1 {
			chapters[i].End = chapters[i+1].Start
		} else if duration > 0 {
			chapters[i].End = duration
		}
	}
	return duration, chapters, nil
}

// chapTrackID scans tref's child boxes for a chap reference and returns the
// first referenced track ID.
func chapTrackID(data []byte) uint32 {
	offset := 0
	for offset+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[offset:]))
		if size < 8 || offset+size > len(data) {
			return 0
		}
		if string(data[offset+4:offset+8]) == "chap" && size >= 12 {
			return binary.BigEndian.Uint32(data[offset+8:])
		}
		offset += size
	}
	return 0
}

// sampleTable is the subset of a track's stbl needed to locate and time its
// samples.
type sampleTable struct {
	timescale    uint32
	deltas       []uint32
	sizes        []uint32
	chunkOffsets []uint64
	chunkRuns    []chunkRun
}

// chunkRun is one stsc entry: starting at firstChunk (1-based), every chunk
// holds samplesPerChunk samples until the next run begins.
type chunkRun struct {
	firstChunk      uint32
	samplesPerChunk uint32
}

// readTextTrackChapters walks the chapter track's sample table and reads each
// text sample as a chapter title, accumulating stts deltas for start times.
func readTextTrackChapters(r io.ReadSeeker, trackID, movieTimescale uint32) ([]Chapter, error) {
	var (
		table          *sampleTable
		currentTrackID uint32
	)
	inTrack := func() bool { return currentTrackID == trackID && table != nil }

	_, err := gomp4.ReadBoxStructure(r, func(h *gomp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case gomp4.BoxTypeMoov():
			return h.Expand()
		case gomp4.BoxTypeTrak():
			currentTrackID = 0
			return h.Expand()
		case gomp4.BoxTypeTkhd():
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if tkhd, ok := payload.(*gomp4.Tkhd); ok {
				currentTrackID = tkhd.TrackID
				if currentTrackID == trackID {
					table = &sampleTable{}
				}
			}
			return nil, nil
		case gomp4.BoxTypeMdia(), gomp4.BoxTypeMinf(), gomp4.BoxTypeStbl():
			if currentTrackID == trackID {
				return h.Expand()
			}
			return nil, nil
		case gomp4.BoxTypeMdhd():
			if !inTrack() {
				return nil, nil
			}
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if mdhd, ok := payload.(*gomp4.Mdhd); ok {
				table.timescale = mdhd.Timescale
			}
			return nil, nil
		case gomp4.BoxTypeStts():
			if !inTrack() {
				return nil, nil
			}
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if stts, ok := payload.(*gomp4.Stts); ok {
				for _, entry := range stts.Entries {
					for i := uint32(0); i < entry.SampleCount; i++ {
						table.deltas = append(table.deltas, entry.SampleDelta)
					}
				}
			}
			return nil, nil
		case gomp4.BoxTypeStsz():
			if !inTrack() {
				return nil, nil
			}
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if stsz, ok := payload.(*gomp4.Stsz); ok {
				if stsz.SampleSize > 0 {
					for i := uint32(0); i < stsz.SampleCount; i++ {
						table.sizes = append(table.sizes, stsz.SampleSize)
					}
				} else {
					table.sizes = stsz.EntrySize
				}
			}
			return nil, nil
		case gomp4.BoxTypeStsc():
			if !inTrack() {
				return nil, nil
			}
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if stsc, ok := payload.(*gomp4.Stsc); ok {
				for _, entry := range stsc.Entries {
					table.chunkRuns = append(table.chunkRuns, chunkRun{
						firstChunk:      entry.FirstChunk,
						samplesPerChunk: entry.SamplesPerChunk,
					})
				}
			}
			return nil, nil
		case gomp4.BoxTypeStco():
			if !inTrack() {
				return nil, nil
			}
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if stco, ok := payload.(*gomp4.Stco); ok {
				for _, offset := range stco.ChunkOffset {
					table.chunkOffsets = append(table.chunkOffsets, uint64(offset))
				}
			}
			return nil, nil
		case gomp4.BoxTypeCo64():
			if !inTrack() {
				return nil, nil
			}
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if co64, ok := payload.(*gomp4.Co64); ok {
				table.chunkOffsets = co64.ChunkOffset
			}
			return nil, nil
		default:
			return nil, nil
		}
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if table == nil || len(table.sizes) == 0 || len(table.chunkOffsets) == 0 {
		return nil, nil
	}

	timescale := table.timescale
	if timescale == 0 {
		timescale = movieTimescale
	}
	if timescale == 0 {
		timescale = 1000
	}

	offsets := table.sampleOffsets()
	var chapters []Chapter
	var elapsed uint64
	for i, size := range table.sizes {
		if i >= len(offsets) {
			break
		}
		title := ""
		if _, err := r.Seek(int64(offsets[i]), io.SeekStart); err == nil {
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err == nil {
				title = parseTextSample(data)
			}
		}
		start := time.Duration(float64(elapsed) / float64(timescale) * float64(time.Second))
		chapters = append(chapters, Chapter{Title: title, Start: start})
		if i < len(table.deltas) {
			elapsed += uint64(table.deltas[i])
		}
	}
	return chapters, nil
}

// sampleOffsets flattens the chunk layout into a per-sample file offset list.
func (t *sampleTable) sampleOffsets() []uint64 {
	offsets := make([]uint64, 0, len(t.sizes))
	sampleIndex := 0
	for chunkIndex, chunkOffset := range t.chunkOffsets {
		samplesInChunk := uint32(1)
		for _, run := range t.chunkRuns {
			if uint32(chunkIndex)+1 >= run.firstChunk {
				samplesInChunk = run.samplesPerChunk
			}
		}
		offset := chunkOffset
		for s := uint32(0); s < samplesInChunk && sampleIndex < len(t.sizes); s++ {
			offsets = append(offsets, offset)
			offset += uint64(t.sizes[sampleIndex])
			sampleIndex++
		}
	}
	return offsets
}

// parseTextSample extracts the title from a QuickTime text sample, which is a
// big-endian length prefix followed by the text and optional style atoms.
func parseTextSample(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	if n > len(data)-2 {
		n = len(data) - 2
	}
	if n <= 0 {
		return ""
	}
	return string(data[2 : 2+n])
}

// parseChplChapters parses a Nero chpl payload. Timestamps are in units of
// 100ns. Version 0 carries a 4-byte count, version 1 a single byte.
func parseChplChapters(data []byte) []Chapter {
	if len(data) < 8 {
		return nil
	}
	version := data[0]
	offset := 4
	var count int
	if version == 0 {
		offset += 4
		if len(data) < offset+4 {
			return nil
		}
		count = int(binary.BigEndian.Uint32(data[offset:]))
		offset += 4
	} else {
		offset++
		if len(data) < offset+1 {
			return nil
		}
		count = int(data[offset])
		offset++
	}

	var chapters []Chapter
	for i := 0; i < count && offset+9 <= len(data); i++ {
		ts := binary.BigEndian.Uint64(data[offset : offset+8])
		titleLen := int(data[offset+8])
		offset += 9
		title := ""
		if offset+titleLen <= len(data) {
			title = string(data[offset : offset+titleLen])
			offset += titleLen
		}
		chapters = append(chapters, Chapter{
			Title: title,
			Start: time.Duration(ts) * 100 * time.Nanosecond,
		})
	}
	return chapters
}
