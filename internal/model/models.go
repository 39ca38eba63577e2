package model

// All lists every persisted model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&User{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
		&InventoryLog{},
		&Settings{},
		&Invoice{},
	}
}
