package service

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/models"
)

// Loader performs the one-shot bulk import of reference data. Rows are
// upserted by natural key; malformed rows are skipped, a missing file
// aborts the run.
type Loader struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewLoader(db *gorm.DB, logger zerolog.Logger) *Loader {
	return &Loader{db: db, logger: logger}
}

// LoadIngredients imports "name,measurement_unit" rows and returns the
// number of rows created
func (l *Loader) LoadIngredients(path string) (int, error) {
	created := 0
	err := l.loadCSV(path, 2, func(record []string) error {
		ingredient := models.Ingredient{
			Name:            record[0],
			MeasurementUnit: record[1],
		}
		res := l.db.Where(models.Ingredient{
			Name:            ingredient.Name,
			MeasurementUnit: ingredient.MeasurementUnit,
		}).FirstOrCreate(&ingredient)
		if res.Error != nil {
			return res.Error
		}
		created += int(res.RowsAffected)
		return nil
	})
	return created, err
}

// LoadTags imports "name,color,slug" rows and returns the number of
// rows created
func (l *Loader) LoadTags(path string) (int, error) {
	created := 0
	err := l.loadCSV(path, 3, func(record []string) error {
		tag := models.Tag{
			Name:  record[0],
			Color: record[1],
			Slug:  record[2],
		}
		res := l.db.Where(models.Tag{Slug: tag.Slug}).FirstOrCreate(&tag)
		if res.Error != nil {
			return res.Error
		}
		created += int(res.RowsAffected)
		return nil
	})
	return created, err
}

func (l *Loader) loadCSV(path string, columns int, upsert func(record []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for i, record := range records {
		if !wellFormed(record, columns) {
			l.logger.Warn().
				Str("file", path).
				Int("line", i+1).
				Msg("skipping malformed row")
			continue
		}
		if err := upsert(record); err != nil {
			return fmt.Errorf("failed to upsert row %d of %s: %w", i+1, path, err)
		}
	}
	return nil
}

func wellFormed(record []string, columns int) bool {
	if len(record) != columns {
		return false
	}
	for _, field := range record {
		if field == "" {
			return false
		}
	}
	return true
}
