package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wexport/internal/exporter"
)

func TestImportCSV(t *testing.T) {
	im := New(0, nil)
	data := "\xEF\xBB\xBForder_id; sku ;product_name\n1003;TS-L;\"T-Shirt; Large\"\n1002\n"

	result, err := im.Import("export.csv", strings.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	assert.Equal(t, []string{"order_id", "sku", "product_name"}, result.Headers)
	assert.Equal(t, []map[string]string{
		{"order_id": "1003", "sku": "TS-L", "product_name": "T-Shirt; Large"},
		{"order_id": "1002", "sku": "", "product_name": ""},
	}, result.Rows)

	sample := result.Sample(1)
	assert.Len(t, sample.Rows, 1)
	assert.Equal(t, result.Headers, sample.Headers)
}

func TestImportXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	s := exporter.NewXLSXSerializer(&buf)
	require.NoError(t, s.WriteHeader([]string{"order_id", "order_total"}))
	require.NoError(t, s.WriteRow([]string{"1003", "57.50"}))
	require.NoError(t, s.Close())

	path := filepath.Join(t.TempDir(), "wexport_1.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	result, err := New(0, nil).ImportFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "order_total"}, result.Headers)
	assert.Equal(t, []map[string]string{{"order_id": "1003", "order_total": "57.50"}}, result.Rows)
}

func TestImportRejects(t *testing.T) {
	im := New(16, nil)

	tests := []struct {
		name    string
		file    string
		data    string
		size    int64
		wantErr error
	}{
		{name: "no name", file: "", data: "a", size: 1, wantErr: ErrNoFile},
		{name: "unsupported extension", file: "orders.xls", data: "a", size: 1, wantErr: ErrUnsupportedFormat},
		{name: "declared too large", file: "orders.csv", data: "a", size: 17, wantErr: ErrFileTooLarge},
		{name: "actual too large", file: "orders.csv", data: strings.Repeat("a", 17), size: 1, wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := im.Import(tt.file, strings.NewReader(tt.data), tt.size)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := im.ImportFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestImportEmptyCSV(t *testing.T) {
	result, err := New(0, nil).Import("empty.csv", strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.Empty(t, result.Headers)
	assert.Empty(t, result.Rows)
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "csv", FileType("a.CSV"))
	assert.Equal(t, "xlsx", FileType("dir/a.xlsx"))
	assert.Equal(t, "", FileType("a.xls"))
	assert.Equal(t, "", FileType("csv"))
}
