package entries

import "strings"

// RenameSpec maps a field path to the field it should be moved to.
// A wildcard path like "STRING:request.firstline.uri.query.*" moves every field under it, with the target used as a prefix for the remaining name.
type RenameSpec map[string]string

func NewRenameSpec() RenameSpec {
	return RenameSpec{}
}

func (s RenameSpec) Move(path, target string) RenameSpec {
	s[path] = target
	return s
}

// Rename moves fields of entry according to spec. Fields that don't exist are ignored.
func Rename(entry LogEntry, spec RenameSpec) LogEntry {
	for source, target := range spec {
		if prefix, ok := strings.CutSuffix(source, "*"); ok {
			moved := map[string]any{}
			for k, v := range entry {
				if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
					moved[target+rest] = v
					delete(entry, k)
				}
			}
			for k, v := range moved {
				entry[k] = v
			}
			continue
		}
		if val, ok := entry[source]; ok {
			delete(entry, source)
			entry[target] = val
		}
	}
	return entry
}
