package keyboard

import (
	"sort"
	"strings"
)

// interactiveRoles is the set of ARIA roles that imply the element must
// be operable from the keyboard. The custom-widget audit probes every
// element carrying one of these roles on a non-native tag.
var interactiveRoles = map[string]bool{
	"button": true, "link": true, "textbox": true, "searchbox": true,
	"combobox": true, "listbox": true, "option": true, "checkbox": true,
	"radio": true, "switch": true, "slider": true, "spinbutton": true,
	"menuitem": true, "menuitemcheckbox": true, "menuitemradio": true,
	"tab": true, "treeitem": true,
}

// modalRoles are dialog-like roles where a focus trap is required
// behavior rather than a defect.
var modalRoles = map[string]bool{
	"dialog":      true,
	"alertdialog": true,
}

// interactiveRoleSelector renders the widget-audit CSS selector from
// the role set, deterministically ordered.
func interactiveRoleSelector() string {
	roles := make([]string, 0, len(interactiveRoles))
	for r := range interactiveRoles {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = `[role="` + r + `"]`
	}
	return strings.Join(parts, ", ")
}
