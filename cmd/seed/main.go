package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/hmlee/shopcart-backend/config"
	"github.com/hmlee/shopcart-backend/internal/app/model"
	"github.com/hmlee/shopcart-backend/internal/app/repository"
	"github.com/hmlee/shopcart-backend/internal/db"
)

// Imports a product catalog from an XLSX sheet with the columns
// category | name | description | price | stock.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Mongo); err != nil {
		log.Fatal("Failed to connect to document store:", err)
	}
	defer db.Close()

	productRepo := repository.NewProductRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, skipped, err := readProductsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total products to import: %d (skipped %d rows)\n", len(products), skipped)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	imported := 0
	for i := range products {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
		err := productRepo.Create(ctx, &products[i])
		cancel()
		if err != nil {
			log.Printf("Failed to import %q: %v", products[i].Name, err)
			continue
		}
		imported++
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", imported)
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

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	var (
		products []model.Product
		skipped  int
	)
	now := time.Now()

	// First row is the header.
	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}

		if len(row) < 4 {
			skipped++
			continue
		}

		category := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		description := strings.TrimSpace(row[2])
		priceStr := strings.TrimSpace(row[3])

		if category == "" || name == "" {
			skipped++
			continue
		}

		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			skipped++
			continue
		}

		stock := 0
		if len(row) > 4 {
			if s, err := strconv.Atoi(strings.TrimSpace(row[4])); err == nil && s >= 0 {
				stock = s
			}
		}

		products = append(products, model.Product{
			ID:            uuid.NewString(),
			Category:      category,
			Name:          name,
			Description:   description,
			Price:         price,
			StockQuantity: stock,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	return products, skipped, nil
}
