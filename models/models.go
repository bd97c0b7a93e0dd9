package models

// All lists every persisted model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Category{},
		&Product{},
		&Table{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&PaymentSplit{},
		&ServiceChargePolicy{},
		&OrderServiceCharge{},
		&TableGrouping{},
		&TableGroupMember{},
		&TableMergeHistory{},
		&OrderTransfer{},
		&CashOperation{},
		&AuditLog{},
		&Settings{},
	}
}
