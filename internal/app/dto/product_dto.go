package dto

import (
	"github.com/supermercado/products-api/internal/domain"
)

// ProductResponse represents the product response
type ProductResponse struct {
	ID       string  `json:"id"`
	Code     int     `json:"code"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// DeleteResponse confirms a delete-by-code operation
type DeleteResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		ID:       p.ID.Hex(),
		Code:     p.Code,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
	}
}

// ToProductResponseList converts a list of domain Products to ProductResponse list
func ToProductResponseList(products []*domain.Product) []*ProductResponse {
	responses := make([]*ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductResponse(p)
	}
	return responses
}
