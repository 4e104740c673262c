package scanner

import (
	"path"
	"sort"

	"github.com/hondanabooks/hondana/pkg/mediafile"
)

// GroupFiles partitions the files discovered under one library folder into
// item groups, keyed by the item's path relative to the folder root. A
// root-level media file maps to itself (a single-file item). Media files
// establish groups; every other file attaches to the nearest group that
// contains it, or is dropped when no ancestor group exists.
func GroupFiles(files []mediafile.FileInfo, booksAllowEbooks bool) map[string][]string {
	groups := map[string][]string{}

	var others []mediafile.FileInfo
	for _, f := range files {
		if mediafile.HasHiddenSegment(f.RelPath()) {
			continue
		}
		if !mediafile.IsMedia(f.Filename, booksAllowEbooks) {
			others = append(others, f)
			continue
		}
		if f.RelDirPath == "" {
			// Media file directly in the folder root is its own item.
			groups[f.Filename] = append(groups[f.Filename], f.Filename)
			continue
		}
		dir := f.RelDirPath
		if mediafile.IsDiscFolder(path.Base(dir)) && path.Dir(dir) != "." {
			// "CD 1"/"Disc 2" folders fold into the parent item.
			dir = path.Dir(dir)
		}
		if anc := ancestorGroup(groups, dir); anc != "" {
			dir = anc
		}
		groups[dir] = append(groups[dir], f.RelPath())
	}

	for _, f := range others {
		for dir := f.RelDirPath; dir != "" && dir != "."; dir = parentDir(dir) {
			if _, ok := groups[dir]; ok {
				groups[dir] = append(groups[dir], f.RelPath())
				break
			}
		}
	}

	for _, members := range groups {
		sort.Strings(members)
	}
	return groups
}

// ancestorGroup returns the outermost existing group that is a strict
// ancestor of dir, so deeper files merge into an item already established
// closer to the folder root.
func ancestorGroup(groups map[string][]string, dir string) string {
	for prefix := firstSegment(dir); prefix != dir; prefix = path.Join(prefix, segmentAfter(dir, prefix)) {
		if _, ok := groups[prefix]; ok {
			return prefix
		}
	}
	return ""
}

func firstSegment(p string) string {
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return p
}

// segmentAfter returns the path segment of p immediately following prefix.
func segmentAfter(p, prefix string) string {
	rest := p[len(prefix)+1:]
	return firstSegment(rest)
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}
