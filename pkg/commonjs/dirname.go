// SPDX-License-Identifier: MPL-2.0

package commonjs

// Dirname returns all but the last element of path using "/" as the separator.
// Trailing separators are ignored. A path without a directory part yields "."
// (or "/" when it is rooted), and a path whose only directory is a doubled
// leading slash yields "//".
func Dirname(path ResolvedPath) ResolvedPath {
	s := string(path)
	if s == "" {
		return "."
	}

	hasRoot := s[0] == '/'
	end := -1
	trailing := true
	for i := len(s) - 1; i >= 1; i-- {
		if s[i] == '/' {
			if !trailing {
				end = i
				break
			}
			continue
		}
		trailing = false
	}

	switch {
	case end == -1 && hasRoot:
		return "/"
	case end == -1:
		return "."
	case hasRoot && end == 1:
		return "//"
	default:
		return ResolvedPath(s[:end])
	}
}
