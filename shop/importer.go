/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package shop

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSV columns of the orders import.
const (
	CSVColumnDeliveryAddress = "delivery_address"
	CSVColumnPromocode       = "promocode"
	CSVColumnProducts        = "products"
)

// Importer creates orders from CSV files.
type Importer struct {
	repo Repository
}

// NewImporter creates a new Importer.
func NewImporter(repo Repository) *Importer {
	return &Importer{repo: repo}
}

type importedOrder struct {
	order      Order
	productIDs []uint
}

// ImportOrdersCSV creates an order owned by ownerID for every CSV row and returns how many were created.
// The header must contain delivery_address, promocode and products (space-separated product ids).
// Unknown product ids are skipped. Orders are created all at once: a file that fails creates nothing.
func (im *Importer) ImportOrdersCSV(ctx context.Context, r io.Reader, ownerID uint) (int, error) {
	if _, err := im.repo.GetUser(ctx, ownerID); err != nil {
		return 0, err
	}
	rows, err := parseOrdersCSV(r, ownerID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	orders := make([]OrderWithProducts, len(rows))
	for i := range rows {
		orders[i] = OrderWithProducts{Order: &rows[i].order, ProductIDs: rows[i].productIDs}
	}
	if err = im.repo.CreateOrders(ctx, orders); err != nil {
		return 0, fmt.Errorf("create orders: %w", err)
	}
	return len(rows), nil
}

func parseOrdersCSV(r io.Reader, ownerID uint) ([]importedOrder, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: csv file is empty", ErrValidation)
		}
		return nil, fmt.Errorf("%w: read csv header: %v", ErrValidation, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{CSVColumnDeliveryAddress, CSVColumnPromocode, CSVColumnProducts} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: csv column %q is missing", ErrValidation, required)
		}
	}

	var rows []importedOrder
	for rowNum := 1; ; rowNum++ {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrValidation, rowNum, readErr)
		}
		productIDs, parseErr := parseProductIDs(record[columns[CSVColumnProducts]])
		if parseErr != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrValidation, rowNum, parseErr)
		}
		order := Order{
			DeliveryAddress: record[columns[CSVColumnDeliveryAddress]],
			Promocode:       record[columns[CSVColumnPromocode]],
			UserID:          ownerID,
		}
		if err = order.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		rows = append(rows, importedOrder{order: order, productIDs: productIDs})
	}
	return rows, nil
}

func parseProductIDs(s string) ([]uint, error) {
	fields := strings.Fields(s)
	ids := make([]uint, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.ParseUint(field, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q", field)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
