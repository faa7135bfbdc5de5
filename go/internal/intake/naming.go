package intake

import (
	"fmt"
	"strings"

	"github.com/mcdev12/fileupload/go/internal/models"
)

// EventDirName is the directory uploads for the event and division are stored in.
func EventDirName(ev models.Event, d models.Division) string {
	return fmt.Sprintf("%s-%s", ev.TemplateName(), d)
}

// StoredFileName builds "<div><team>-<stem>-<id:03d><label>.<ext>" from the
// sender's file name. Any client-side directory is dropped.
func StoredFileName(d models.Division, team int, original string, id int, label string) string {
	base := original
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	stem, ext := splitStemExt(base)
	name := fmt.Sprintf("%s%d-%s-%03d%s", d, team, stem, id, label)
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func splitStemExt(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// slotLabel returns "a" for the first attachment slot, "b" for the second, and so on.
func slotLabel(slot int) string {
	return string(rune('a' + slot))
}
