package service

import (
	"context"
	"fmt"
	"io"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{
	"ID", "Title", "Description", "Price", "Quantity", "Sold",
	"Category", "Images", "CreatedAt", "UpdatedAt",
}

// ExportProducts writes the whole catalog to w as an xlsx workbook
func (s *CatalogService) ExportProducts(ctx context.Context, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.ExportProducts")
	defer span.End()

	products, err := s.store.ListProducts(ctx, models.ProductQuery{SortBy: "createdAt"})
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	file, err := buildProductWorkbook(products)
	if err != nil {
		return err
	}
	return file.Write(w)
}

func buildProductWorkbook(products []models.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Title)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetFloat(p.Price.InexactFloat64())
		row.AddCell().SetValue(p.Quantity)
		row.AddCell().SetValue(p.Sold)

		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		row.AddCell().SetValue(category)
		row.AddCell().SetValue(len(p.Images))

		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}
