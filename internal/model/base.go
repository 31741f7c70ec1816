package model

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the primary key is still zero. IDs are
// generated application-side so the same models work on PostgreSQL and SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Member{},
		&Product{},
		&PaymentMethod{},
		&Setting{},
		&MembershipPlan{},
		&CashSession{},
		&CashMovement{},
		&CashClosure{},
		&InventoryMovement{},
		&Sale{},
		&SaleItem{},
		&SalePayment{},
		&Subscription{},
		&Payment{},
		&Expense{},
	}
}
