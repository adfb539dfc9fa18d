package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/tulparexpress/tulpar-bot/internal/models"
	"github.com/xuri/excelize/v2"
)

var ErrNoParcels = errors.New("failed to generate manifest, 0 parcels were provided")

// Generator holds the state for the Excel manifest generation process.
type Generator struct {
	file *excelize.File
}

// NewGenerator creates a new manifest generator.
func NewGenerator() *Generator {
	return &Generator{
		file: excelize.NewFile(),
	}
}

// GenerateParcelManifest renders the given parcels into an Excel workbook,
// one sheet per lifecycle stage, and returns the serialized file. It returns
// ErrNoParcels when there is nothing to render.
func GenerateParcelManifest(parcels []models.Parcel) (*bytes.Buffer, error) {
	var err error

	if len(parcels) == 0 {
		return nil, ErrNoParcels
	}

	parcelsByStatus := make(map[models.ParcelStatus][]models.Parcel)
	for _, parcel := range parcels {
		parcelsByStatus[parcel.Status] = append(parcelsByStatus[parcel.Status], parcel)
	}

	gen := NewGenerator()
	defer gen.file.Close()

	if err = gen.addSheets(parcelsByStatus); err != nil {
		return nil, fmt.Errorf("failed to add sheets: %w", err)
	}

	// setup first sheet as active
	gen.file.SetActiveSheet(0)

	// delete default sheet
	if sheetIndex, _ := gen.file.GetSheetIndex("Sheet1"); sheetIndex != -1 {
		if err = gen.file.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("failed to delete default sheet 'Sheet1': %w", err)
		}
	}

	buffer, err := gen.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write data from saved file: %w", err)
	}

	return buffer, nil
}

// addSheets adds one sheet per lifecycle stage and fills it with the parcels
// sitting in that stage.
func (g *Generator) addSheets(parcelsByStatus map[models.ParcelStatus][]models.Parcel) error {
	var err error
	headerIndex := 2

	for status, parcelsInStatus := range parcelsByStatus {
		sheetName := truncateSheetName(string(status))

		if _, err = g.file.NewSheet(sheetName); err != nil {
			return fmt.Errorf("failed to generate new sheet '%s': %w", sheetName, err)
		}

		if err = g.setupSheet(sheetName, len(parcelsInStatus)); err != nil {
			return fmt.Errorf("failed to setup sheet '%s': %w", sheetName, err)
		}

		// Fill data
		for i, parcel := range parcelsInStatus {
			if err = g.addRow(sheetName, i+headerIndex, parcel); err != nil { // i+2, because the first row - header
				return fmt.Errorf("failed to add row '%d': %w", i+headerIndex, err)
			}
		}
	}
	return nil
}

// setupSheet initializes the specified sheet with headers, styles, and column widths.
func (g *Generator) setupSheet(sheetName string, rowCount int) error {
	var err error

	// Style creating
	headerStyle, err := g.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center", Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create new style: %w", err)
	}

	// Headers creating
	rowHeight := 20
	headers := []string{"Tracking", "Client Code", "Registered", "Weight (kg)", "Amount USD", "Amount Som"}
	if err = g.file.SetRowHeight(sheetName, 1, float64(rowHeight)); err != nil {
		return fmt.Errorf("failed to set row height for headers: %w", err)
	}
	if err = g.file.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to set sheet row for headers: %w", err)
	}
	if err = g.file.SetCellStyle(sheetName, "A1", "F1", headerStyle); err != nil {
		return fmt.Errorf("failed to set cell style for headers: %w", err)
	}

	// Setup width column
	widths := map[string]float64{
		"A": 25, "B": 14, "C": 18, "D": 14, "E": 14, "F": 14, //nolint:mnd // const values for row width
	}
	for col, width := range widths {
		if err = g.file.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// Add table
	if err = g.file.AddTable(sheetName, &excelize.Table{
		Range:     fmt.Sprintf("A1:F%d", rowCount+1),
		Name:      "table_" + strings.ReplaceAll(sheetName, " ", ""),
		StyleName: "TableStyleMedium9",
	}); err != nil {
		return fmt.Errorf("failed to add table: %w", err)
	}

	return nil
}

// addRow adds a single parcel to the specified sheet.
func (g *Generator) addRow(sheetName string, rowNum int, parcel models.Parcel) error {
	rowData := []interface{}{
		parcel.Tracking,
		fmt.Sprintf("TE-%04d", parcel.ClientCode),
		parcel.CreatedAt.Format("02.01.2006"),
		decimalCell(parcel.WeightKg),
		decimalCell(parcel.AmountUSD),
		decimalCell(parcel.AmountSom),
	}
	cell, _ := excelize.CoordinatesToCellName(1, rowNum)

	if err := g.file.SetSheetRow(sheetName, cell, &rowData); err != nil {
		return fmt.Errorf("failed to set sheet row: %w", err)
	}

	return nil
}

// decimalCell converts a decimal amount into a float cell value.
func decimalCell(value decimal.Decimal) float64 {
	f, _ := value.Float64()
	return f
}

// truncateSheetName truncates the given sheet name to a maximum of 31 runes.
// If the name exceeds 31 runes, it returns the first 31 runes of the name.
// Otherwise, it returns the name as is.
func truncateSheetName(name string) string {
	if utf8.RuneCountInString(name) > 31 {
		runes := []rune(name)
		return string(runes[:31])
	}
	return name
}
