package erpclient

// Resource is one logical register of the remote api. The exact endpoint name
// is a deployment detail, so each resource carries a ranked candidate list
// tried in order until one responds.
type Resource struct {
	Name       string
	Candidates []string
}

// Registers exposed by the ERP deployments this engine syncs against.
var (
	ResourceSales = Resource{
		Name:       "sales",
		Candidates: []string{"SalesRegister", "Document_Sales", "Sales"},
	}
	ResourceStock = Resource{
		Name:       "stock",
		Candidates: []string{"StockBalance", "AccumulationRegister_Stock", "Rests"},
	}
	ResourceCustomers = Resource{
		Name:       "customers",
		Candidates: []string{"CustomerCards", "Catalog_Customers", "Customers"},
	}
	ResourceLoyalty = Resource{
		Name:       "loyalty",
		Candidates: []string{"LoyaltyRegister", "InformationRegister_Loyalty", "Loyalty"},
	}
)
