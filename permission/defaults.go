package permission

// DefaultDefinitions enumerates the point-of-sale permission set. Keys
// are "domain.action"; categories group them for display.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Key: "sales.create", Category: "sales"},
		{Key: "sales.refund", Category: "sales"},
		{Key: "sales.discount", Category: "sales"},
		{Key: "cash.open", Category: "cash"},
		{Key: "cash.close", Category: "cash"},
		{Key: "cash.withdraw", Category: "cash"},
		{Key: "inventory.view", Category: "inventory"},
		{Key: "inventory.adjust", Category: "inventory"},
		{Key: "pricing.edit", Category: "inventory"},
		{Key: "reports.view", Category: "reports"},
		{Key: "reports.export", Category: "reports"},
		{Key: "customers.view", Category: "customers"},
		{Key: "customers.edit", Category: "customers"},
		{Key: "users.manage", Category: "admin"},
		{Key: "settings.manage", Category: "admin"},
		{Key: "audit.view", Category: "admin"},
		{Key: "backup.manage", Category: "admin"},
	}
}

// RoleSpec describes one entry of the static role table.
type RoleSpec struct {
	Name     string
	Label    string
	Priority int
	Wildcard bool
	Keys     []string
}

// DefaultRoles is the fixed reference role table: admin, manager,
// accountant, cashier, viewer. Priority orders display only.
func DefaultRoles() []RoleSpec {
	return []RoleSpec{
		{Name: "admin", Label: "Administrator", Priority: 1, Wildcard: true},
		{Name: "manager", Label: "Manager", Priority: 2, Keys: []string{
			"sales.create", "sales.refund", "sales.discount",
			"cash.open", "cash.close", "cash.withdraw",
			"inventory.view", "inventory.adjust", "pricing.edit",
			"reports.view", "reports.export",
			"customers.view", "customers.edit",
			"audit.view",
		}},
		{Name: "accountant", Label: "Accountant", Priority: 3, Keys: []string{
			"reports.view", "reports.export",
			"cash.close",
			"inventory.view",
			"customers.view",
		}},
		{Name: "cashier", Label: "Cashier", Priority: 4, Keys: []string{
			"sales.create",
			"cash.open", "cash.close",
			"inventory.view",
			"customers.view",
		}},
		{Name: "viewer", Label: "Viewer", Priority: 5, Keys: []string{
			"inventory.view",
			"reports.view",
			"customers.view",
		}},
	}
}

// BuildDefaultTable registers the default permission set and role table
// onto a fresh 64-bit registry and returns both, frozen.
func BuildDefaultTable() (*Registry, *Table, error) {
	registry, err := NewRegistry(64)
	if err != nil {
		return nil, nil, err
	}
	for _, def := range DefaultDefinitions() {
		if _, err := registry.Register(def); err != nil {
			return nil, nil, err
		}
	}
	registry.Freeze()

	table := NewTable(registry)
	for _, spec := range DefaultRoles() {
		if spec.Wildcard {
			err = table.RegisterWildcard(spec.Name, spec.Label, spec.Priority)
		} else {
			err = table.Register(spec.Name, spec.Label, spec.Priority, spec.Keys)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	table.Freeze()

	return registry, table, nil
}
