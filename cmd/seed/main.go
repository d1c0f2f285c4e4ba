package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mduc/storefront-backend/config"
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// Imports catalog products from an XLSX file with the columns:
// name, description, price, sale_price, stock_quantity, image_url.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	productRepo := repository.NewProductRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, skipped, err := readProductsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Products to import: %d (skipped %d invalid rows)\n", len(products), skipped)
	if len(products) == 0 {
		fmt.Println("Nothing to import.")
		return
	}

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 100
	if err := productRepo.BulkCreate(products, batchSize); err != nil {
		log.Fatal("Failed to bulk create products:", err)
	}

	fmt.Printf("Import completed: %d products\n", len(products))
}

func readProductsFromXLSX(filePath string) ([]model.Product, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	var products []model.Product
	seen := make(map[string]bool)
	skipped := 0

	for i, row := range rows {
		// First row carries headers.
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		if len(row) < 3 {
			skipped++
			continue
		}

		name := strings.TrimSpace(row[0])
		description := cellAt(row, 1)
		priceStr := strings.TrimSpace(row[2])
		salePriceStr := cellAt(row, 3)
		stockStr := cellAt(row, 4)
		imageURL := cellAt(row, 5)

		if name == "" || seen[name] {
			skipped++
			continue
		}

		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price <= 0 {
			skipped++
			continue
		}

		var salePrice *float64
		if salePriceStr != "" {
			sp, err := strconv.ParseFloat(salePriceStr, 64)
			if err != nil || sp <= 0 || sp >= price {
				skipped++
				continue
			}
			salePrice = &sp
		}

		stock := 0
		if stockStr != "" {
			stock, err = strconv.Atoi(stockStr)
			if err != nil || stock < 0 {
				skipped++
				continue
			}
		}

		seen[name] = true
		products = append(products, model.Product{
			Name:          name,
			Description:   description,
			Price:         price,
			SalePrice:     salePrice,
			StockQuantity: stock,
			ImageURL:      imageURL,
		})
	}

	return products, skipped, nil
}

// cellAt reads an optional trailing cell; XLSX rows omit empty tails.
func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
