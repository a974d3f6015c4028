package model

// AllModels 需要建表的模型，供 AutoMigrate 与测试使用
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &Address{}, &Rating{},
		&Product{}, &Bid{},
		&Order{}, &OrderItem{},
	}
}
