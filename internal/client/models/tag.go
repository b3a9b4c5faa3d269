package models

// TagType partitions tags between awards and entries. It doubles as the
// index into per-type state arrays.
type TagType int

const (
	TagTypeAward TagType = iota
	TagTypeEntry

	tagTypeCount
)

// TagTypeCount is the number of tag types.
const TagTypeCount = int(tagTypeCount)

func (t TagType) Valid() bool { return t >= 0 && t < tagTypeCount }

func (t TagType) String() string {
	switch t {
	case TagTypeAward:
		return "award"
	case TagTypeEntry:
		return "entry"
	default:
		return "unknown"
	}
}

// Tag is a server-side tag record.
type Tag struct {
	ID   ID      `json:"id"`
	Name string  `json:"name"`
	Type TagType `json:"type"`
}
