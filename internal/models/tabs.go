package models

// UI tab identifiers. Tabs are enabled per organization and granted per user;
// a user sees the intersection of the two sets.
const (
	TabNMS       = "nms"
	TabInventory = "inventory"
	TabAdmin     = "admin"
)

// KnownTabs is the closed set of valid tab identifiers.
var KnownTabs = []string{TabNMS, TabInventory, TabAdmin}

// ValidTab reports whether the identifier names a known tab.
func ValidTab(tab string) bool {
	for _, known := range KnownTabs {
		if known == tab {
			return true
		}
	}
	return false
}
