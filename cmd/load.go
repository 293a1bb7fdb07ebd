package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/server"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newLoadIngredientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-ingredients <file>",
		Short: "Import ingredients from a JSON or CSV (name,measurement_unit) file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readIngredients(args[0])
			if err != nil {
				return err
			}
			db, err := server.OpenDatabase(configuration)
			if err != nil {
				return err
			}
			added, err := services.NewIngredientService(db).ImportIngredients(cmd.Context(), items)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"read": len(items), "added": added}).Info("Ingredients imported")
			return nil
		},
	}
}

func newLoadTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-tags <file>",
		Short: "Import tags from a JSON or CSV (name,color,slug) file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := readTags(args[0])
			if err != nil {
				return err
			}
			db, err := server.OpenDatabase(configuration)
			if err != nil {
				return err
			}
			added, err := services.NewTagService(db).ImportTags(cmd.Context(), tags)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"read": len(tags), "added": added}).Info("Tags imported")
			return nil
		},
	}
}

func readIngredients(path string) ([]services.IngredientInput, error) {
	var items []services.IngredientInput
	err := readRecords(path, &items, 2, func(row []string) {
		items = append(items, services.IngredientInput{Name: row[0], MeasurementUnit: row[1]})
	})
	return items, err
}

func readTags(path string) ([]services.TagInput, error) {
	var tags []services.TagInput
	err := readRecords(path, &tags, 3, func(row []string) {
		tags = append(tags, services.TagInput{Name: row[0], Color: row[1], Slug: row[2]})
	})
	return tags, err
}

// readRecords decodes a .json file into dst, or feeds each row of any other
// file, read as CSV with the given number of columns, to add. A first CSV row
// equal to the field names is skipped.
func readRecords(path string, dst interface{}, columns int, add func(row []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.NewDecoder(f).Decode(dst); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = columns
	r.TrimLeadingSpace = true
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if line == 1 && strings.EqualFold(row[0], "name") {
			continue
		}
		add(row)
	}
}
