package rowreader

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	input := "Product_Name, SKU ,batch_number,quantity,description\n" +
		"Widget,A,B-1,3,blue\n" +
		"\n" +
		"Gadget,B,B-2,5\n"

	rows, err := Read("inventory.CSV", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, RawRow{Line: 2, ProductName: "Widget", SKU: "A", BatchNumber: "B-1", Quantity: "3", Description: "blue"}, rows[0])
	assert.Equal(t, 3, rows[1].Line) // csv.Reader drops empty lines
	assert.Equal(t, "5", rows[1].Quantity)
	assert.Empty(t, rows[1].Description)
}

func TestReadCSVMissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("product_name,quantity\nWidget,1\n"))

	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"sku", "batch_number"}, missing.Columns)
	assert.Contains(t, err.Error(), "sku, batch_number")
}

func TestReadEmptyFile(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, RequiredColumns, missing.Columns)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"sku", "product_name", "batch_number", "quantity"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"A", "Widget", "B-1", 3}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"B", "Gadget", "B-2", 5}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := Read("upload.xlsx", &buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Widget", rows[0].ProductName)
	assert.Equal(t, "3", rows[0].Quantity)
	assert.Equal(t, "B", rows[1].SKU)
}

func TestUnsupportedExtension(t *testing.T) {
	_, err := Read("upload.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
