package models

// All lists every table owned by the API, in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OutboxMessage{},
		&NewsletterSubscriber{},
	}
}
