package index

// View is the read side shared by the raw index and its locking wrapper.
// Query parsers, the HTTP front end and the JSON writers depend on View only.
type View interface {
	Contains(word string) bool
	ContainsLocation(word, location string) bool
	ContainsPosition(word, location string, position int) bool
	Words() []string
	Locations(word string) []string
	Positions(word, location string) []int
	NumLocations(word string) int
	NumPositions(word, location string) int
	Size() int
	Count(location string) int
	Counts() map[string]int
	Snapshot() Postings
	Search(queries []string, exact bool) []Result
	ExactSearch(queries []string) []Result
	PartialSearch(queries []string) []Result
}

// Index is a View that also accepts writes.
type Index interface {
	View
	Add(word, location string, position int)
	Merge(other *InvertedIndex)
}

var (
	_ Index = (*InvertedIndex)(nil)
	_ Index = (*ThreadSafe)(nil)
)
