package imagery

// MetadataEntry is a single opaque key/value pair carried alongside an
// image. For TIFF sources the key names the originating tag and the
// value holds the raw tag payload.
type MetadataEntry struct {
	Key   string
	Value []byte
}

// Metadata is the side channel of non-pixel information (geospatial
// transforms, band descriptions, nodata markers) carried unchanged from
// a source file to any output written from it. The pipeline never reads
// the contents for algorithmic decisions; it is pure passthrough.
type Metadata struct {
	entries []MetadataEntry
}

// Set appends or replaces the entry for key, preserving insertion order.
func (m *Metadata) Set(key string, value []byte) {
	for i := range m.entries {
		if m.entries[i].Key == key {
			m.entries[i].Value = value
			return
		}
	}
	m.entries = append(m.entries, MetadataEntry{Key: key, Value: value})
}

// Get returns the value stored for key, or nil if absent.
func (m *Metadata) Get(key string) []byte {
	for i := range m.entries {
		if m.entries[i].Key == key {
			return m.entries[i].Value
		}
	}
	return nil
}

// Entries returns the entries in insertion order.
func (m *Metadata) Entries() []MetadataEntry {
	return m.entries
}

// Len returns the number of entries.
func (m *Metadata) Len() int {
	return len(m.entries)
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	out := &Metadata{entries: make([]MetadataEntry, len(m.entries))}
	for i, e := range m.entries {
		v := make([]byte, len(e.Value))
		copy(v, e.Value)
		out.entries[i] = MetadataEntry{Key: e.Key, Value: v}
	}
	return out
}
