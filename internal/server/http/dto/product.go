package dto

import "encoding/json"

// ProductResponse is a catalog entry.
type ProductResponse struct {
	ID    string      `json:"_id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
	Image string      `json:"image,omitempty"`
	Sold  bool        `json:"sold"`
}
