package core

// Balance aggregates amounts by movement type.
type Balance struct {
	Income  Money
	Expense Money
}

// Total is income minus expense.
func (b Balance) Total() Money {
	return Money{Cents: b.Income.Cents - b.Expense.Cents}
}
