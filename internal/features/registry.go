package features

import "sort"

// Feature identifiers form a closed set; flags referencing unknown IDs are
// never evaluated as enabled.
const (
	Alerts          = "alerts"
	NetworkTopology = "network_topology"
	AuditLogView    = "audit_log_view"
	Logs            = "logs"
	GrafanaMetrics  = "grafana_metrics"
)

// Definition describes a feature and its seed-time default. Defaults are only
// consulted when creating flag rows for a new organization; evaluation of a
// missing row is always false.
type Definition struct {
	ID             string
	Description    string
	DefaultEnabled bool
}

var registry = map[string]Definition{
	Alerts:          {ID: Alerts, Description: "Alert receiver configuration and firing alert views", DefaultEnabled: true},
	NetworkTopology: {ID: NetworkTopology, Description: "Graphical network topology view", DefaultEnabled: false},
	AuditLogView:    {ID: AuditLogView, Description: "Administrative audit log browser", DefaultEnabled: false},
	Logs:            {ID: Logs, Description: "Gateway log search and export", DefaultEnabled: true},
	GrafanaMetrics:  {ID: GrafanaMetrics, Description: "Embedded metrics dashboards", DefaultEnabled: false},
}

// Get returns the definition for a feature ID.
func Get(id string) (Definition, bool) {
	def, ok := registry[id]
	return def, ok
}

// Valid reports whether the ID names a registered feature.
func Valid(id string) bool {
	_, ok := registry[id]
	return ok
}

// All returns every registered definition sorted by ID.
func All() []Definition {
	defs := make([]Definition, 0, len(registry))
	for _, def := range registry {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}
