package domain

import "strings"

// unsafeFileNameChars are the characters the original's safe_file_name
// strips from a synthesized beatmap filename before it is used to match a
// locally stored .osu file or a Windows/Linux filesystem path.
const unsafeFileNameChars = `\/:*?"<>|`

// SafeFileName strips characters that are invalid in a filename on the
// common filesystems pp-server runs on.
func SafeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(unsafeFileNameChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
