package services

import (
	"context"

	"booknook/internal/domain"
	"booknook/internal/repos"
)

const DefaultLowStockThreshold = 5

const (
	StockIn  = "IN_STOCK"
	StockLow = "LOW_STOCK"
	StockOut = "OUT_OF_STOCK"
)

type Availability struct {
	Stock  int    `json:"stock"`
	Status string `json:"status"`
}

type InventoryService struct {
	Inv          *repos.InventoryRepo
	LowThreshold int
}

func NewInventoryService(inv *repos.InventoryRepo, lowThreshold int) *InventoryService {
	if lowThreshold <= 0 {
		lowThreshold = DefaultLowStockThreshold
	}
	return &InventoryService{Inv: inv, LowThreshold: lowThreshold}
}

// StockStatus maps a quantity to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) StockStatus(qty int) string {
	switch {
	case qty >= s.LowThreshold:
		return StockIn
	case qty > 0:
		return StockLow
	default:
		return StockOut
	}
}

func (s *InventoryService) CheckAvailability(ctx context.Context, bookID int64) (Availability, error) {
	qty, err := s.Inv.Qty(ctx, bookID)
	if isNoRows(err) {
		return Availability{}, domain.E(domain.ErrNotFound, "Book not found.")
	}
	if err != nil {
		return Availability{}, err
	}
	return Availability{Stock: qty, Status: s.StockStatus(qty)}, nil
}

// Overview lists every book's stock, lowest first.
func (s *InventoryService) Overview(ctx context.Context) ([]repos.InventoryRow, error) {
	return s.Inv.ListAll(ctx)
}
