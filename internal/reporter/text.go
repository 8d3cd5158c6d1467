package reporter

import (
	"fmt"
	"os/user"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fenilsonani/adminkit/internal/scanner"
	"github.com/fenilsonani/adminkit/pkg/utils"
)

// LargestFiles renders one "<size> MB - <path>" line per file
func LargestFiles(files []scanner.FileEntry) string {
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = fmt.Sprintf("%.1f MB - %s", utils.Megabytes(f.Size), f.Path)
	}
	return strings.Join(lines, "\n")
}

// PermissionListing renders "<mode> <owner> <group> <path>" lines
func PermissionListing(files []scanner.FileEntry, names *OwnerNames) string {
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = fmt.Sprintf("%s %s %s %s",
			scanner.ModeString(f.Mode), names.User(f.UID), names.Group(f.GID), f.Path)
	}
	return strings.Join(lines, "\n")
}

// Table renders a borderless fixed-width table
func Table(header []string, rows [][]any) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options = table.OptionsNoBordersAndSeparators
	t.Style().Format.Header = text.FormatUpper

	head := make(table.Row, len(header))
	for i, h := range header {
		head[i] = h
	}
	t.AppendHeader(head)

	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	return t.Render()
}

// OwnerNames resolves numeric ids to names, caching every lookup. Ids without
// a name are printed as numbers.
type OwnerNames struct {
	users  map[uint32]string
	groups map[uint32]string
}

// NewOwnerNames creates an empty name cache
func NewOwnerNames() *OwnerNames {
	return &OwnerNames{
		users:  make(map[uint32]string),
		groups: make(map[uint32]string),
	}
}

// User returns the user name for uid
func (n *OwnerNames) User(uid uint32) string {
	if name, ok := n.users[uid]; ok {
		return name
	}
	id := strconv.FormatUint(uint64(uid), 10)
	name := id
	if u, err := user.LookupId(id); err == nil {
		name = u.Username
	}
	n.users[uid] = name
	return name
}

// Group returns the group name for gid
func (n *OwnerNames) Group(gid uint32) string {
	if name, ok := n.groups[gid]; ok {
		return name
	}
	id := strconv.FormatUint(uint64(gid), 10)
	name := id
	if g, err := user.LookupGroupId(id); err == nil {
		name = g.Name
	}
	n.groups[gid] = name
	return name
}
