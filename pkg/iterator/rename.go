package iterator

import "github.com/saylorsolutions/logdissect/pkg/entries"

// Renamer runs entries.Rename on each entry that passes through the Iterator.
func Renamer(iter Iterator, spec entries.RenameSpec) Iterator {
	return Func(func() (entries.LogEntry, int, error) {
		entry, i, err := iter.Next()
		if err != nil {
			return nil, -1, err
		}
		return entries.Rename(entry, spec), i, nil
	})
}
