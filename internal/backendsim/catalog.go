package backendsim

import (
	"encoding/json"
)

// DefaultCatalogName is the catalog every simulator serves.
const DefaultCatalogName = "CustomerService.json"

type catalogResource struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type catalogService struct {
	Name      string            `json:"name"`
	Address   string            `json:"address"`
	Resources []catalogResource `json:"resources"`
}

type catalogDocument struct {
	Version  string           `json:"version"`
	Services []catalogService `json:"services"`
}

// defaultCatalogs builds the catalogs served under /static/catalogs/.
func defaultCatalogs(servicePath string) map[string][]byte {
	doc := catalogDocument{
		Version: "1.5",
		Services: []catalogService{{
			Name:    "CustomerService",
			Address: servicePath + "/rest",
			Resources: []catalogResource{
				{Name: "Customer", Path: "/Customer"},
				{Name: "Order", Path: "/Order"},
			},
		}},
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return map[string][]byte{DefaultCatalogName: raw}
}
