package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type EntryKind uint8

const (
	EntryFile EntryKind = iota
	EntryDir
	EntryVolume
)

type ListEntry struct {
	Name string
	Size int64
	Kind EntryKind
}

// Listing is the payload of an ls response: the directory on the first line,
// then one entry per line.
type Listing struct {
	Directory string
	Entries   []ListEntry
}

func (l *Listing) Format(separator rune) string {
	var b strings.Builder
	b.WriteString(l.Directory)
	b.WriteByte('\n')

	lines := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		switch e.Kind {
		case EntryDir:
			lines = append(lines, e.Name+string(separator))
		case EntryVolume:
			lines = append(lines, e.Name)
		default:
			lines = append(lines, fmt.Sprintf("%d %s", e.Size, e.Name))
		}
	}
	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}

// Find returns the file entry with the given name.
func (l *Listing) Find(name string) (ListEntry, bool) {
	for _, e := range l.Entries {
		if e.Name == name && e.Kind == EntryFile {
			return e, true
		}
	}
	return ListEntry{}, false
}

func ParseListing(text string) (*Listing, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("empty listing")
	}

	listing := &Listing{Directory: strings.TrimRight(lines[0], "\r")}
	volumes := listing.Directory == VolumeRoot

	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		switch {
		case volumes:
			listing.Entries = append(listing.Entries, ListEntry{Name: line, Kind: EntryVolume})
		case strings.HasSuffix(line, "/") || strings.HasSuffix(line, `\`):
			listing.Entries = append(listing.Entries, ListEntry{Name: line[:len(line)-1], Kind: EntryDir})
		default:
			sizeText, name, ok := strings.Cut(line, " ")
			if !ok {
				return nil, fmt.Errorf("malformed listing entry %q", line)
			}
			size, err := strconv.ParseInt(sizeText, 10, 64)
			if err != nil || size < 0 {
				return nil, fmt.Errorf("malformed size in listing entry %q", line)
			}
			listing.Entries = append(listing.Entries, ListEntry{Name: name, Size: size, Kind: EntryFile})
		}
	}

	return listing, nil
}
