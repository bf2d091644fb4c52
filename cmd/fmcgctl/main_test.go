package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(`date,sku,category,units_sold,price_unit,promotion_flag,delivery_days,stock_available
2022-01-01,A,X,1200,2.50,1,3,100
2022-01-01,B,Y,5,4.00,0,2,50
2023-06-15,A,X,7,3.00,0,4,80
`), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"report", "--year", "2022", path})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "(2 of 3 records)")
	assert.Contains(t, text, "1,205")
	assert.Contains(t, text, "50.0%")
	assert.Contains(t, text, "price_unit")
}

func TestReportCommandMissingSource(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"report", filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, cmd.Execute())
}
