package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingFormatAndParse(t *testing.T) {
	listing := &Listing{
		Directory: "/srv/ftp",
		Entries: []ListEntry{
			{Name: "docs", Kind: EntryDir},
			{Name: "a.txt", Size: 100, Kind: EntryFile},
			{Name: "with space.bin", Size: 7, Kind: EntryFile},
		},
	}

	text := listing.Format('/')
	assert.Equal(t, "/srv/ftp\ndocs/\n100 a.txt\n7 with space.bin", text)

	parsed, err := ParseListing(text)
	require.NoError(t, err)
	assert.Equal(t, listing, parsed)
}

func TestParseListingBackslashDirs(t *testing.T) {
	parsed, err := ParseListing("C:\\data\r\nlogs\\\r\n12 x.log\r\n")
	require.NoError(t, err)

	assert.Equal(t, `C:\data`, parsed.Directory)
	require.Len(t, parsed.Entries, 2)
	assert.Equal(t, ListEntry{Name: "logs", Kind: EntryDir}, parsed.Entries[0])
	assert.Equal(t, ListEntry{Name: "x.log", Size: 12, Kind: EntryFile}, parsed.Entries[1])
}

func TestParseListingVolumes(t *testing.T) {
	listing := &Listing{
		Directory: VolumeRoot,
		Entries:   []ListEntry{{Name: "C:", Kind: EntryVolume}, {Name: "D:", Kind: EntryVolume}},
	}

	parsed, err := ParseListing(listing.Format('\\'))
	require.NoError(t, err)
	assert.Equal(t, listing, parsed)
}

func TestParseListingEmptyDirectory(t *testing.T) {
	parsed, err := ParseListing("/empty\n")
	require.NoError(t, err)
	assert.Equal(t, "/empty", parsed.Directory)
	assert.Empty(t, parsed.Entries)
}

func TestParseListingRejectsGarbage(t *testing.T) {
	_, err := ParseListing("")
	assert.Error(t, err)

	_, err = ParseListing("/srv\nnot-a-size")
	assert.Error(t, err)

	_, err = ParseListing("/srv\n-5 neg.bin")
	assert.Error(t, err)
}

func TestListingFind(t *testing.T) {
	listing := &Listing{
		Directory: "/srv",
		Entries: []ListEntry{
			{Name: "up.bin", Kind: EntryDir},
			{Name: "up.bin", Size: 30, Kind: EntryFile},
		},
	}

	entry, ok := listing.Find("up.bin")
	require.True(t, ok)
	assert.Equal(t, int64(30), entry.Size)

	_, ok = listing.Find("missing")
	assert.False(t, ok)
}
