package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/media2net/marktplaats-poster/models"
)

// category-dependent attribute columns carried through to CategoryFields
var categoryFieldColumns = []string{"material", "thickness", "total_surface"}

// ReadProducts loads products from a CSV file. Columns are matched by
// header name, so column order does not matter; rows without a title are
// skipped.
func ReadProducts(filename string) ([]models.Product, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	products := make([]models.Product, 0, len(records)-1)
	for _, record := range records[1:] {
		field := func(name string) string {
			i, ok := header[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		title := field("title")
		if title == "" {
			continue
		}

		delivery := field("delivery_option")
		if delivery == "" {
			// delivery_methods is a ","-separated list; the form only
			// takes one choice, so the first entry wins.
			for _, m := range strings.Split(field("delivery_methods"), ",") {
				if m = strings.TrimSpace(m); m != "" {
					delivery = m
					break
				}
			}
		}

		p := models.Product{
			Title:          title,
			Description:    field("description"),
			Price:          field("price"),
			CategoryPath:   field("category_path"),
			Location:       field("location"),
			ArticleNumber:  field("article_number"),
			Condition:      field("condition"),
			DeliveryOption: delivery,
			CategoryFields: make(map[string]string),
		}

		if photos := field("photos"); photos != "" {
			for _, path := range strings.Split(photos, ";") {
				if path = strings.TrimSpace(path); path != "" {
					p.Photos = append(p.Photos, path)
				}
			}
		}

		for _, col := range categoryFieldColumns {
			if v := field(col); v != "" {
				p.CategoryFields[col] = v
			}
		}

		products = append(products, p)
	}

	return products, nil
}
