package membersync

import (
	"fmt"
	"io"
)

// Empty reports whether the run produced no outcomes at all.
func (r *Report) Empty() bool {
	return len(r.Created) == 0 && len(r.Updated) == 0 && len(r.Deactivated) == 0 &&
		len(r.Skipped) == 0 && len(r.Failed) == 0
}

// Print writes the per-category outcome lists to w.
func (r *Report) Print(w io.Writer) {
	printSection(w, "Created", r.Created)
	printSection(w, "Updated", r.Updated)
	printSection(w, "Deactivated", r.Deactivated)
	printSection(w, "Skipped", r.Skipped)
	printSection(w, "Failed", r.Failed)
}

func printSection(w io.Writer, title string, entries []string) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, entry := range entries {
		fmt.Fprintf(w, "\t%s\n", entry)
	}
}
