package model

// TravelCriteria is one search attempt against the travel catalog. Zero
// BudgetTWD means no budget cap.
type TravelCriteria struct {
	DurationMin int      `json:"duration_min"`
	DurationMax int      `json:"duration_max"`
	Tags        []string `json:"tags"`
	BudgetTWD   int      `json:"budget_twd"`
}

// CatalogItem is one bookable travel product.
type CatalogItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Duration int      `json:"duration"`
	Price    int      `json:"price"`
	Tags     []string `json:"tags"`
}

// Order is a synthesized travel order. Payment is a stub contract; the link
// points at a demo gateway.
type Order struct {
	OrderID     string `json:"order_id"`
	ProductID   string `json:"product_id"`
	Date        string `json:"date"`
	PaymentLink string `json:"payment_link"`
}
