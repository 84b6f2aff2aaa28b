package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStockImport(t *testing.T) {
	text := "Smartcard,Serial_Number,Batch\r\n" +
		"\"SC001\", SN001 ,B7\r\n" +
		"SC002,SN002\r\n" +
		"SC003\r\n" +
		",SN004\r\n" +
		"SC005,,B1\r\n" +
		"SC006,SN006,\r\n"

	rows, skipped := ParseStockImport(text)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, skipped)

	assert.Equal(t, StockRow{Smartcard: "SC001", SerialNumber: "SN001", BatchNumber: strPtr("B7")}, rows[0])
	assert.Equal(t, "SC002", rows[1].Smartcard)
	assert.Nil(t, rows[1].BatchNumber)
	assert.Nil(t, rows[2].BatchNumber)
}

func TestParseStockImportWithoutHeader(t *testing.T) {
	rows, skipped := ParseStockImport("SC1,SN1\nSC2,SN2")
	assert.Len(t, rows, 2)
	assert.Zero(t, skipped)
}

func TestParseImportEmpty(t *testing.T) {
	rows, skipped := ParseStockImport("  \n ")
	assert.Empty(t, rows)
	assert.Zero(t, skipped)

	agents, skipped := ParseAgentImport("")
	assert.Empty(t, agents)
	assert.Zero(t, skipped)
}

func TestParseAgentImport(t *testing.T) {
	text := "name,phone,email\n" +
		"Amina Juma,0754123456,amina@example.com\n" +
		"Baraka\n" +
		",0711000000\n" +
		"Chausiku,,chausiku@example.com"

	rows, skipped := ParseAgentImport(text)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, skipped)

	assert.Equal(t, AgentRow{Name: "Amina Juma", Phone: strPtr("0754123456"), Email: strPtr("amina@example.com")}, rows[0])
	assert.Equal(t, AgentRow{Name: "Baraka"}, rows[1])
	assert.Nil(t, rows[2].Phone)
	assert.Equal(t, "chausiku@example.com", *rows[2].Email)
}
