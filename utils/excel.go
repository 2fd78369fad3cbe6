package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"medequip-backend/config"
)

// EnsureDirectoryExists creates dir (and parents) when missing.
func EnsureDirectoryExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}
	return nil
}

// GenerateExcel writes headers and rows to a new workbook in dir and returns
// the generated file name.
func GenerateExcel(dir, taskName string, headers []string, rows [][]interface{}) (string, error) {
	if err := EnsureDirectoryExists(dir); err != nil {
		config.Logger.Error("Failed to ensure report directory exists", zap.String("dir", dir), zap.Error(err))
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"
	index, err := f.GetSheetIndex(sheetName)
	if err != nil || index < 0 {
		if index, err = f.NewSheet(sheetName); err != nil {
			return "", fmt.Errorf("error creating sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return "", fmt.Errorf("error creating header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return "", fmt.Errorf("error setting header %s: %w", header, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return "", fmt.Errorf("error styling header %s: %w", header, err)
		}
	}

	for r, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return "", fmt.Errorf("error setting value at %s: %w", cell, err)
			}
		}
	}
	f.SetActiveSheet(index)

	fileName := fmt.Sprintf("%s_%s.xlsx", taskName, time.Now().Format("20060102_150405"))
	if err := f.SaveAs(filepath.Join(dir, fileName)); err != nil {
		config.Logger.Error("Error saving Excel file", zap.String("file", fileName), zap.Error(err))
		return "", err
	}

	config.Logger.Info("Excel file saved", zap.String("file", fileName), zap.Int("rows", len(rows)))
	return fileName, nil
}
